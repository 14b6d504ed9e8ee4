package interfaces

// FullscreenPresenter abstracts the hosting platform's fullscreen
// capability. The video controller drives Enter/Exit and subscribes to
// externally triggered exits (escape key, platform gesture) so its own
// size mode never disagrees with the actual presentation mode.
type FullscreenPresenter interface {
	// Enter requests fullscreen presentation for the video container.
	Enter() error

	// Exit leaves fullscreen presentation.
	Exit() error

	// Subscribe registers a callback invoked whenever the platform's
	// presentation mode changes without the controller asking for it.
	// The callback receives the new fullscreen state.
	Subscribe(onChange func(fullscreen bool))
}
