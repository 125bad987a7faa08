// Package config resolves the effective action configuration and the
// engine settings.
//
// # Action configuration
//
// Resolver discovers action documents in up to three places, lowest
// precedence first:
//
//	$XDG_CONFIG_HOME/glance/actions.{json,yaml,yml,toml}   user
//	<nearest ancestor>/.glance/actions.{json,yaml,yml,toml} project
//	--config <path>                                         override
//
// An override path is authoritative: when given, it is the only source.
// Missing sources are skipped. Each present source is size-checked,
// decoded, validated and then merged by the layer package. In strict mode
// (the default) any unreadable or invalid source fails the whole
// resolution; in lenient mode the source is skipped with a warning.
// Size limits are enforced in both modes.
//
// # Engine settings
//
// Settings are read with koanf from settings.toml in the user config
// directory and then the project .glance directory, and can be overridden
// through GLANCE_SETTINGS_* environment variables.
package config
