// Package bridge connects a browser page to a debug engine over a
// websocket.
//
// The page plays both roles the engine talks to: it runs the compiled
// turtle program, reporting runtime events, and it shows the editor that
// receives highlight commands.
//
//	page ──inbound──▶ reader goroutine ──▶ Session ──▶ debug.Engine
//	  ▲                                                    │
//	  └──outbound── writer goroutine ◀── writeCh ◀── editor commands
//
// Every connection gets its own Session and Engine. Messages are JSON
// objects with a "type" field; see protocol.go. A run starts with bind,
// followed by one compiled message per compiled script. A message that
// cannot be handled is answered with an error message and the session
// continues.
package bridge
