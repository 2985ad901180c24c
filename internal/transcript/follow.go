package transcript

// Viewport is the scrolling view a transcript is rendered into
type Viewport interface {
	AtBottom() bool
	SetContent(content string)
	GotoBottom()
}

// Follow replaces the viewport content and keeps it pinned to the newest
// line only if it was already showing the bottom. A viewer who scrolled up
// stays where they are. It reports whether the view was re-pinned.
func Follow(vp Viewport, content string) bool {
	atBottom := vp.AtBottom()
	vp.SetContent(content)
	if atBottom {
		vp.GotoBottom()
	}
	return atBottom
}
