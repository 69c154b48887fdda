// Package viz renders particle scenes in the terminal with Bubble Tea.
//
//   - [App]: scene and preset picker that launches the live viewer
//   - [Model]: live viewer stepping one frame per tick
//   - [Canvas]: braille sub-pixel canvas with line and circle drawing
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Rebuild the scene
//	G     - Toggle gravity
//	B     - Spawn a burst of particles
//	+/-   - More/fewer substeps
//	[/]   - Rewind/forward through history
//	C     - Toggle GIF recording
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
