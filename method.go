package gemgis

import (
	"fmt"
	"math"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// Interpolation method names.
const (
	MethodNearest = "nearest"
	MethodLinear  = "linear"
	MethodCubic   = "cubic"
	MethodRBF     = "rbf"
)

// DefaultEpsilon is the default RBF shape parameter.
const DefaultEpsilon = 2

// A Method is a grid interpolation method: Nearest, Linear, Cubic, or
// RadialBasis.
type Method interface {
	String() string
	isMethod()
}

// Nearest assigns each grid node the value of the nearest point.
type Nearest struct{}

// Linear interpolates linearly on the Delaunay triangulation of the points.
type Linear struct{}

// Cubic interpolates with a piecewise cubic surface on the Delaunay
// triangulation of the points.
type Cubic struct{}

// RadialBasis interpolates with a radial basis function.
type RadialBasis struct {
	Kernel  Kernel
	Epsilon float64
}

func (Nearest) String() string     { return MethodNearest }
func (Linear) String() string      { return MethodLinear }
func (Cubic) String() string       { return MethodCubic }
func (RadialBasis) String() string { return MethodRBF }

func (Nearest) isMethod()     {}
func (Linear) isMethod()      {}
func (Cubic) isMethod()       {}
func (RadialBasis) isMethod() {}

// A Kernel is a radial basis function.
type Kernel string

// Kernels.
const (
	KernelMultiquadric Kernel = "multiquadric"
	KernelInverse      Kernel = "inverse"
	KernelGaussian     Kernel = "gaussian"
	KernelLinear       Kernel = "linear"
	KernelCubic        Kernel = "cubic"
	KernelQuintic      Kernel = "quintic"
	KernelThinPlate    Kernel = "thin_plate"
)

// phi returns the kernel value at distance r.
func (k Kernel) phi(r, epsilon float64) float64 {
	switch k {
	case KernelMultiquadric:
		return math.Sqrt((r/epsilon)*(r/epsilon) + 1)
	case KernelInverse:
		return 1 / math.Sqrt((r/epsilon)*(r/epsilon)+1)
	case KernelGaussian:
		return math.Exp(-(r / epsilon) * (r / epsilon))
	case KernelLinear:
		return r
	case KernelCubic:
		return r * r * r
	case KernelQuintic:
		return r * r * r * r * r
	case KernelThinPlate:
		if r == 0 {
			return 0
		}
		return r * r * math.Log(r)
	default:
		return math.NaN()
	}
}

func (k Kernel) valid() bool {
	switch k {
	case KernelMultiquadric, KernelInverse, KernelGaussian, KernelLinear, KernelCubic, KernelQuintic, KernelThinPlate:
		return true
	default:
		return false
	}
}

// NewRadialBasis returns a new RadialBasis method. An empty kernel selects
// the multiquadric kernel.
func NewRadialBasis(kernel Kernel, epsilon float64) (RadialBasis, error) {
	if kernel == "" {
		kernel = KernelMultiquadric
	}
	if !kernel.valid() {
		return RadialBasis{}, fmt.Errorf("%w: unknown RBF function %q", ErrInvalidParameter, kernel)
	}
	if !(epsilon > 0) || math.IsInf(epsilon, 0) {
		return RadialBasis{}, fmt.Errorf("%w: epsilon must be positive", ErrInvalidParameter)
	}
	return RadialBasis{
		Kernel:  kernel,
		Epsilon: epsilon,
	}, nil
}

// ParseMethod returns the Method called name. kernel and epsilon are only
// used by the rbf method.
func ParseMethod(name string, kernel Kernel, epsilon float64) (Method, error) {
	switch name {
	case MethodNearest:
		return Nearest{}, nil
	case MethodLinear:
		return Linear{}, nil
	case MethodCubic:
		return Cubic{}, nil
	case MethodRBF:
		return NewRadialBasis(kernel, epsilon)
	default:
		return nil, fmt.Errorf("%w: No valid method defined: %q", ErrInvalidParameter, name)
	}
}

// InterpolationOptions are the user-facing interpolation settings, as read
// from configuration files and command line flags.
type InterpolationOptions struct {
	Method   string  `mapstructure:"method" default:"nearest" validate:"oneof=nearest linear cubic rbf"`
	Res      int     `mapstructure:"res" default:"500" validate:"gt=0"`
	N        int     `mapstructure:"n" validate:"gte=0"`
	Seed     *uint64 `mapstructure:"seed"`
	Function string  `mapstructure:"function" default:"multiquadric" validate:"oneof=multiquadric inverse gaussian linear cubic quintic thin_plate"`
	Epsilon  float64 `mapstructure:"epsilon" default:"2" validate:"gt=0"`
}

// Build fills in defaults, validates o, and returns the Method and Options
// it describes. An N of zero means all points.
func (o *InterpolationOptions) Build() (Method, []Option, error) {
	if err := defaults.Set(o); err != nil {
		return nil, nil, err
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(o); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	method, err := ParseMethod(o.Method, Kernel(o.Function), o.Epsilon)
	if err != nil {
		return nil, nil, err
	}
	opts := []Option{WithRes(o.Res)}
	if o.N > 0 {
		opts = append(opts, WithSampleCount(o.N))
	}
	if o.Seed != nil {
		opts = append(opts, WithSeed(*o.Seed))
	}
	return method, opts, nil
}
