// Package debug correlates turtle runtime events with authored source
// lines and drives the editor's "currently executing" highlights.
//
// # Architecture
//
//	runtime events ──► Engine.Apply ──► Store (per debug id Record)
//	                        │
//	                        ├──► sourcemap.Resolver (line, cached)
//	                        │
//	                        └──► line tracker ──► Editor.MarkLine / ClearLine
//
//	gutter hover ──► Engine.HoverEnter ──► transform.Parse ──► Editor.ShowOverlay
//
// # Event protocol
//
// Every turtle command invocation gets a debug id from NextID. The runtime
// then reports exactly one Enter and one Exit for that id, plus one Appear
// and one Resolve per animated element. Exit may come before, between or
// after the Appear/Resolve pairs: a command can return before its
// animation settles or block until it does.
//
// # Sessions
//
// Bind attaches the engine to a new run. Ids allocated before the most
// recent Bind belong to an earlier session, and events carrying them are
// dropped without error.
//
// An Engine is not safe for concurrent use. Hosts deliver events and
// hover notifications from a single goroutine.
package debug
