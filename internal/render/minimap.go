// Package render draws a top-down minimap of a match with gg.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"bunny-chase/internal/game"
	"bunny-chase/internal/protocol"
)

// Palette
var (
	Background  = color.RGBA{12, 12, 28, 255}
	Ground      = color.RGBA{46, 92, 52, 255}
	Edge        = color.RGBA{200, 200, 210, 255}
	TreeColor   = color.RGBA{24, 60, 28, 255}
	RockColor   = color.RGBA{120, 120, 126, 255}
	CarrotColor = color.RGBA{255, 140, 20, 255}
	TakenColor  = color.RGBA{90, 70, 50, 255}
	BunnyColor  = color.RGBA{250, 250, 255, 255}
	BobcatColor = color.RGBA{196, 120, 60, 255}
	DangerColor = color.RGBA{220, 30, 30, 255}
	TextColor   = color.RGBA{240, 240, 240, 255}
)

const (
	margin       = 8.0
	hudHeight    = 24.0
	minAgentPx   = 4.0
	minCarrotPx  = 3.0
	minColliderP = 1.0
)

// Minimap renders snapshots at a fixed square size. It reuses one gg
// context, so a Minimap is not safe for concurrent use.
type Minimap struct {
	Size int
	dc   *gg.Context
}

// NewMinimap creates a renderer producing size×size images.
func NewMinimap(size int) *Minimap {
	if size < 64 {
		size = 64
	}
	return &Minimap{Size: size, dc: gg.NewContext(size, size)}
}

// Project maps world (x, z) to pixel coordinates. +X is right and +Z is
// down, matching a camera looking at the ground from above.
func (m *Minimap) Project(x, z, radius float64) (float64, float64, float64) {
	half := float64(m.Size) / 2
	scale := (half - margin) / radius
	cy := half + hudHeight/2
	return half + x*scale, cy + z*scale, scale
}

// Render draws snap over world's scenery. The returned image is owned by
// the Minimap and overwritten by the next call.
func (m *Minimap) Render(snap *game.Snapshot, world *game.World) image.Image {
	dc := m.dc
	size := float64(m.Size)
	radius := game.WorldRadius
	if world != nil && world.Radius > 0 {
		radius = world.Radius
	}

	dc.SetColor(Background)
	dc.DrawRectangle(0, 0, size, size)
	dc.Fill()

	cx, cy, scale := m.Project(0, 0, radius)
	dc.SetColor(Ground)
	dc.DrawCircle(cx, cy, radius*scale)
	dc.Fill()
	dc.SetColor(Edge)
	dc.SetLineWidth(1.5)
	dc.DrawCircle(cx, cy, radius*scale)
	dc.Stroke()

	if world != nil {
		for _, c := range world.Colliders() {
			x, y, _ := m.Project(c.X, c.Z, radius)
			if c.Kind == game.ColliderRock {
				dc.SetColor(RockColor)
			} else {
				dc.SetColor(TreeColor)
			}
			dc.DrawCircle(x, y, math.Max(c.Radius*scale, minColliderP))
			dc.Fill()
		}
	}

	if snap == nil {
		return dc.Image()
	}

	for _, c := range snap.Collectibles {
		x, y, _ := m.Project(c.X, c.Z, radius)
		if c.Collected {
			dc.SetColor(TakenColor)
		} else {
			dc.SetColor(CarrotColor)
		}
		dc.DrawCircle(x, y, minCarrotPx)
		dc.Fill()
	}

	for _, a := range snap.Agents {
		m.drawAgent(a, radius, scale)
	}

	m.drawHUD(snap)
	return dc.Image()
}

func (m *Minimap) drawAgent(a game.AgentSnapshot, radius, scale float64) {
	dc := m.dc
	x, y, _ := m.Project(a.X, a.Z, radius)
	r := math.Max(a.Radius*scale, minAgentPx)

	if a.Role == protocol.RoleBobcat {
		dc.SetColor(BobcatColor)
	} else {
		dc.SetColor(BunnyColor)
	}
	dc.DrawCircle(x, y, r)
	dc.Fill()

	// heading marker just ahead of the body; yaw 0 faces +Z
	hx := x + math.Sin(a.Yaw)*r*1.8
	hy := y + math.Cos(a.Yaw)*r*1.8
	dc.DrawCircle(hx, hy, r/2)
	dc.Fill()

	if a.Local {
		dc.SetColor(Edge)
		dc.SetLineWidth(1)
		dc.DrawCircle(x, y, r+2)
		dc.Stroke()
	}
}

func (m *Minimap) drawHUD(snap *game.Snapshot) {
	dc := m.dc
	size := float64(m.Size)

	// danger bar across the top, full width at the 0.6 cap
	if snap.Danger > 0 {
		dc.SetColor(DangerColor)
		dc.DrawRectangle(0, 0, size*snap.Danger/0.6, 4)
		dc.Fill()
	}

	status := fmt.Sprintf("%s  round %d  carrots %d/%d", snap.Phase, snap.Round, snap.Collected, game.CollectibleCount)
	if snap.Phase == game.PhaseEnded && snap.Winner.Valid() {
		status = fmt.Sprintf("%s wins  round %d  carrots %d/%d", snap.Winner, snap.Round, snap.Collected, game.CollectibleCount)
	}
	dc.SetColor(TextColor)
	dc.DrawString(status, margin, 18)
}

// SavePNG renders snap and writes it to path.
func (m *Minimap) SavePNG(path string, snap *game.Snapshot, world *game.World) error {
	m.Render(snap, world)
	if err := m.dc.SavePNG(path); err != nil {
		return fmt.Errorf("save minimap %s: %w", path, err)
	}
	return nil
}
