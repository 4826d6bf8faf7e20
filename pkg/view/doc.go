// Package view owns the transient interaction state shared by the 2D and 3D
// renderers: selection, view mode, zoom, pan, camera distance and the pan-drag
// session.
//
// # Lifecycle
//
// A [Controller] is created per hosted view. [Controller.Load] binds it to a
// snapshot; loading a snapshot with a different content hash resets all
// state. Switching mode keeps the selection and resets everything else, since
// 2D pan/zoom and 3D camera distance are unrelated coordinate systems.
//
// # Drag Sessions
//
// A pan drag attaches move/up/blur listeners to a [Window], the host-provided
// scope wider than the canvas. The session detaches them on pointer-up
// anywhere, on blur, on mode switch, on snapshot change and on teardown, so no
// exit path leaves a listener behind.
//
// # Concurrency
//
// Controller methods are safe for concurrent use. Callbacks run outside the
// controller's lock and may call back into it.
package view
