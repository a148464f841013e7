package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-toon/engine/light"
)

func lightType(name string) (light.Type, error) {
	switch name {
	case "", "directional":
		return light.TypeDirectional, nil
	case "point":
		return light.TypePoint, nil
	default:
		return 0, fmt.Errorf("%w: unknown light type %q", ErrInvalidLayout, name)
	}
}

// defaultLights is the rig used when a layout declares no lights: three directional lights.
// Two point lights are kept for editing but start disabled.
func defaultLights() []light.Light {
	return []light.Light{
		light.NewLight(light.TypeDirectional,
			light.WithDirection(1, 1, 0), light.WithColor(0.8, 0.8, 0.8), light.WithIntensity(0.8)),
		light.NewLight(light.TypeDirectional,
			light.WithDirection(-1, -0.25, 0), light.WithColor(0.8, 0.8, 0.8), light.WithIntensity(0.51)),
		light.NewLight(light.TypeDirectional,
			light.WithDirection(1, -1, 1), light.WithColor(0, 0, 1), light.WithIntensity(0.41)),
		light.NewLight(light.TypePoint,
			light.WithPosition(-7, 3, 0), light.WithColor(0.5, 0.5, 0.5), light.WithIntensity(0.1), light.WithRange(10),
			light.WithEnabled(false)),
		light.NewLight(light.TypePoint,
			light.WithPosition(0, -1, 0), light.WithColor(1, 1, 1), light.WithIntensity(0.9), light.WithRange(5),
			light.WithEnabled(false)),
	}
}

func (lt LightLayout) build() light.Light {
	t, _ := lightType(lt.Type)
	options := []light.LightBuilderOption{
		light.WithColor(lt.Color[0], lt.Color[1], lt.Color[2]),
		light.WithIntensity(lt.Intensity),
		light.WithEnabled(!lt.Disabled),
		light.WithPosition(lt.Position[0], lt.Position[1], lt.Position[2]),
		light.WithDirection(lt.Direction[0], lt.Direction[1], lt.Direction[2]),
	}
	if lt.Range > 0 {
		options = append(options, light.WithRange(lt.Range))
	}
	return light.NewLight(t, options...)
}
