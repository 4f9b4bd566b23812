package provider

import (
	"fmt"
	"strings"

	"github.com/gogpu/sprite"
)

// DefaultCharacter is the character description used when none is given.
const DefaultCharacter = "a cute little round blue dragon with big eyes"

// Prompt renders the sprite sheet generation prompt for a character
// description. The prompt asks for the layout the Player expects: an 8x7
// grid of square, gapless cells on a pure magenta background, one animation
// per row.
func Prompt(character string) string {
	return PromptFor(character, sprite.DefaultGrid())
}

// PromptFor renders the prompt for a custom grid.
func PromptFor(character string, grid sprite.Grid) string {
	character = strings.TrimSpace(character)
	if character == "" {
		character = DefaultCharacter
	}
	grid = grid.Normalize()

	var b strings.Builder
	b.WriteString("Generate one sprite sheet image.\n\nHard requirements:\n")
	for _, line := range []string{
		"PNG or JPG (PNG preferred to avoid compression noise).",
		"The background must be pure magenta #ff00ff and nothing else: no gradients, shadows, textures, noise or compression artifacts, and no second background color. The app keys the background out automatically.",
		"The character has no scenery of its own (no floor, walls, light spots, smoke). Everything except the character is pure magenta.",
		"Do not use the background color or anything close to magenta on the character, props or shadows, or it will be removed too.",
		"No magenta reflections, rim light or glow on the character.",
		fmt.Sprintf("Lay the frames out as a grid of %d columns by %d rows. Every cell must be a square frame.", grid.Columns, grid.Rows),
		"Adjacent frames touch: no gaps, padding, margins, grid lines or separators.",
		fmt.Sprintf("Overall aspect ratio about %d:%d (%.4f).", grid.Columns, grid.Rows, float64(grid.Columns)/float64(grid.Rows)),
		"High resolution is preferred; the sheet is scaled down proportionally.",
		"Sharp edges and clear details; no blur, jaggies or compression artifacts.",
		"Each row is one animation; frames run left to right and loop.",
		"Consecutive frames in a row change smoothly: no skipped frames, sudden jumps, pose or expression changes, zoom or camera changes.",
		"Keep the character in the same place in every frame, centered, and never cropped by the cell edge.",
	} {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteByte('\n')
	}

	b.WriteString("\nRows, top to bottom:\n")
	for _, r := range sprite.AnimationRows() {
		if int(r) >= grid.Rows {
			break
		}
		l := r.Label()
		fmt.Fprintf(&b, "- Row %d: %s (%s)\n", int(r)+1, l.Title, l.Description)
	}
	b.WriteString("The Idle row must breathe and blink, not stand still. The Sleepy row shows closed-eye breathing only, no yawning.\n")

	fmt.Fprintf(&b, "\nCharacter: %s\n", character)
	b.WriteString("Style: cute, clean, 3D cartoon rendering with consistent lighting and colors; keep the background pure magenta.\n")
	b.WriteString("Output: only this sprite sheet image.")
	return b.String()
}
