package gemgis

import "log/slog"

// DefaultRes is the default number of grid steps along each axis.
const DefaultRes = 500

// An Option sets an option on an extraction or interpolation.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	transformer Transformer
	res         int
	sampleCount *int
	seed        *uint64
}

func newOptions(opts []Option) *options {
	o := &options{
		logger: slog.Default(),
		res:    DefaultRes,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTransformer sets the Transformer used when the collection and the DEM
// are in different coordinate reference systems. By default a new
// ProjTransformer is created for each call.
func WithTransformer(transformer Transformer) Option {
	return func(o *options) {
		o.transformer = transformer
	}
}

// WithRes sets the number of grid steps along each axis.
func WithRes(res int) Option {
	return func(o *options) {
		o.res = res
	}
}

// WithSampleCount draws n random points before interpolating.
func WithSampleCount(n int) Option {
	return func(o *options) {
		o.sampleCount = &n
	}
}

// WithSeed seeds the random sampling.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = &seed
	}
}

func (o *options) getTransformer() (Transformer, error) {
	if o.transformer != nil {
		return o.transformer, nil
	}
	transformer, err := NewProjTransformer()
	if err != nil {
		return nil, err
	}
	o.transformer = transformer
	return transformer, nil
}
