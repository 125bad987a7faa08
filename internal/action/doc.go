// Package action defines the data model of the action engine.
//
// The types in this package are plain values:
//
//   - Definition: a key-bound action with a script payload
//   - Command: the payload itself, a tagged union of shell, builtin,
//     external, script and sequence commands
//   - When: an optional applicability predicate
//   - Config: one configuration document (actions, key bindings, environment)
//
// Two structural invariants are enforced by downstream packages rather than
// here: action ids are unique within an effective registry, and a key string
// resolves to at most one action id.
//
// # Documents
//
// A configuration document looks like this in JSON:
//
//	{
//	  "version": "1",
//	  "actions": [
//	    {
//	      "id": "copy-path",
//	      "description": "Copy file path",
//	      "key": "ctrl+y",
//	      "script": "printf %s {{filePath}} | pbcopy"
//	    },
//	    {
//	      "id": "lint",
//	      "description": "Lint the current file",
//	      "key": "L",
//	      "script": {"type": "external", "command": "golangci-lint", "args": ["run", "{{filePath}}"]}
//	    }
//	  ],
//	  "keyBindings": {"ctrl+l": "lint"},
//	  "environment": {"variables": {"EDITOR": "vi"}, "timeout": 10000}
//	}
//
// Unknown fields are ignored so newer documents load in older builds.
package action
