package scene

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/Carmen-Shannon/oxy-toon/common"
)

// Placements returns the hand-placed entities followed by the scattered ones. The scatter is
// driven only by the layout's seed, so two calls on the same layout return the same slice.
//
// Returns:
//   - []EntityLayout: every entity the scene will create, in draw order
func (l *Layout) Placements() []EntityLayout {
	out := make([]EntityLayout, 0, len(l.Entities)+l.scatterCount())
	out = append(out, l.Entities...)

	rng := rand.New(rand.NewPCG(l.Seed, l.Seed^0x9e3779b97f4a7c15))
	for _, s := range l.Scatter {
		out = append(out, s.place(rng)...)
	}
	return out
}

func (l *Layout) scatterCount() int {
	n := 0
	for _, s := range l.Scatter {
		n += s.Count
	}
	return n
}

func (s ScatterLayout) place(rng *rand.Rand) []EntityLayout {
	minScale := common.Coalesce(s.MinScale, 1)
	maxScale := max(common.Coalesce(s.MaxScale, minScale), minScale)
	prefix := common.Coalesce(s.Name, s.Mesh)

	out := make([]EntityLayout, 0, s.Count)
	for i := range s.Count {
		// sqrt keeps the density uniform over the ring's area.
		inner, outer := float64(s.MinRadius), float64(s.Radius)
		r := math.Sqrt(inner*inner + rng.Float64()*(outer*outer-inner*inner))
		angle := rng.Float64() * 2 * math.Pi
		scale := minScale + rng.Float32()*(maxScale-minScale)
		yaw := rng.Float32() * 360

		out = append(out, EntityLayout{
			Name:     fmt.Sprintf("%s-%d", prefix, i),
			Mesh:     s.Mesh,
			Material: s.Materials[i%len(s.Materials)],
			Position: [3]float32{
				s.Center[0] + float32(r*math.Cos(angle)),
				s.Center[1] - s.Sink*scale,
				s.Center[2] + float32(r*math.Sin(angle)),
			},
			Rotation: [3]float32{0, yaw, 0},
			Scale:    &[3]float32{scale, scale, scale},
		})
	}
	return out
}
