package res

// AboutContent contains the Markdown content for the About dialog.
// This is maintained separately for easy updates.
const AboutContent = `An audio-reactive visualizer built with Go and Fyne.

**Features:**
- Plays MP3 files from your library
- Seven visualizers driven by the live spectrum
- Per-visualizer bloom and point size settings
- Tempo detection for the playing track

**Controls:**
- Drag to orbit, scroll to zoom
- Right-click the scene to switch visualizer
- Alt+Space play/pause, Alt+Left/Right previous/next, Alt+Up/Down volume
`
