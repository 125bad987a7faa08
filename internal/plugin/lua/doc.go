// Package lua runs embedded Lua snippets in a sandbox.
//
// A snippet sees the base, string, table and math libraries and a single
// host module, glance, whose functions are forwarded over the bridge
// protocol:
//
//	glance.status(message [, severity [, timeout_ms]])
//	glance.clear_status()
//	glance.file_info()  -- {path, language, total_lines, current_line}
//	glance.selection()  -- {lines, count, text}
//
// Anything printed is captured as the snippet's output. There is no io,
// os, debug or package library, and the loaders (dofile, loadfile, load,
// loadstring, require) are removed.
//
// Snippets run either in-process, over an in-memory bridge, or in a child
// process (glance bridge-lua) that speaks the bridge protocol on stdio.
package lua
