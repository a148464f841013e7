package light

import (
	"errors"
	"fmt"
)

// ErrCapacityExceeded is returned when a light is added to a full List.
var ErrCapacityExceeded = errors.New("light: capacity exceeded")

// List is an ordered, capacity-bounded collection of lights. The capacity is normally the
// light array length reflected from the pixel shader that consumes the list.
type List struct {
	lights   []Light
	capacity int
}

// NewList creates an empty list that holds at most capacity lights.
//
// Parameters:
//   - capacity: the maximum number of lights; values below 1 are raised to 1
//
// Returns:
//   - *List: the empty list
func NewList(capacity int) *List {
	capacity = max(capacity, 1)
	return &List{lights: make([]Light, 0, capacity), capacity: capacity}
}

// Add appends a light.
//
// Parameters:
//   - l: the light to append
//
// Returns:
//   - error: ErrCapacityExceeded when the list is full; the list is left unchanged
func (ls *List) Add(l Light) error {
	if len(ls.lights) >= ls.capacity {
		return fmt.Errorf("%w: list holds %d lights", ErrCapacityExceeded, ls.capacity)
	}
	ls.lights = append(ls.lights, l)
	return nil
}

// Len returns the number of lights in the list, enabled or not.
func (ls *List) Len() int {
	return len(ls.lights)
}

func (ls *List) Capacity() int {
	return ls.capacity
}

// At returns a pointer to the i-th light for in-place editing. It panics when i is out of range.
func (ls *List) At(i int) *Light {
	return &ls.lights[i]
}

// All returns a copy of the lights in insertion order.
func (ls *List) All() []Light {
	out := make([]Light, len(ls.lights))
	copy(out, ls.lights)
	return out
}

// Marshal packs the enabled lights in order, stopping after capacity lights so the payload
// always fits a shader array of that length.
//
// Parameters:
//   - capacity: the element count of the destination shader array
//
// Returns:
//   - []byte: count*GPULightSize bytes
//   - int: the number of lights packed, for the shader's light count
func (ls *List) Marshal(capacity int) ([]byte, int) {
	capacity = max(capacity, 0)
	buf := make([]byte, 0, min(capacity, len(ls.lights))*GPULightSize)
	count := 0
	for _, l := range ls.lights {
		if count == capacity {
			break
		}
		if !l.enabled {
			continue
		}
		g := l.GPU()
		buf = append(buf, g.Marshal()...)
		count++
	}
	return buf, count
}
