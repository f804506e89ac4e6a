// Package bridge binds a Lua runtime to the host object model in package
// host. It provides:
//   - Value marshalling between variant.Value and Lua values. Scalars map to
//     Lua scalars, objects to a userdata per object, and compound builtins to
//     boxed userdata backed by a handle arena.
//   - Script instances: a per-object table plus a single-inheritance chain of
//     script member tables, resolved in a fixed order (instance table, leaf
//     script to root, native reflection) for every get, set and call.
//   - Native call wrappers exposing registered class methods to scripts.
//   - A reentrancy guard serializing access to the runtime while letting
//     host code called from scripts call back into scripts.
//
// A Runtime owns exactly one Lua state. Scripts are loaded from the
// configured search paths by the Loader, or compiled from memory with
// Runtime.CompileScript. A script is a chunk returning its member table; a
// string field named extends names the parent script.
package bridge
