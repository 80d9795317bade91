package gemgis

import (
	"fmt"
	"math"

	"github.com/fogleman/delaunay"
	"github.com/tidwall/rtree"
)

const barycentricTolerance = 1e-10

// A triangulation is a Delaunay triangulation of scattered points with an
// index of its triangles' bounding boxes.
type triangulation struct {
	xs        []float64
	ys        []float64
	zs        []float64
	triangles []int
	index     rtree.RTreeG[int]
}

func newTriangulation(xs, ys, zs []float64) (*triangulation, error) {
	if len(xs) < 3 {
		return nil, fmt.Errorf("%w: %d points cannot be triangulated", ErrNumericalFailure, len(xs))
	}
	points := make([]delaunay.Point, len(xs))
	for i := range xs {
		points[i] = delaunay.Point{X: xs[i], Y: ys[i]}
	}
	d, err := delaunay.Triangulate(points)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNumericalFailure, err)
	}
	if len(d.Triangles) == 0 {
		return nil, fmt.Errorf("%w: degenerate point configuration", ErrNumericalFailure)
	}

	t := &triangulation{
		xs:        xs,
		ys:        ys,
		zs:        zs,
		triangles: d.Triangles,
	}
	for i := 0; i < len(t.triangles); i += 3 {
		a, b, c := t.triangles[i], t.triangles[i+1], t.triangles[i+2]
		t.index.Insert(
			[2]float64{min(xs[a], xs[b], xs[c]), min(ys[a], ys[b], ys[c])},
			[2]float64{max(xs[a], xs[b], xs[c]), max(ys[a], ys[b], ys[c])},
			i/3,
		)
	}
	return t, nil
}

// locate returns the triangle containing x, y and the barycentric
// coordinates of x, y in it.
func (t *triangulation) locate(x, y float64) (int, [3]float64, bool) {
	eps := 1e-9 * (1 + math.Abs(x) + math.Abs(y))
	found := -1
	var lambda [3]float64
	t.index.Search(
		[2]float64{x - eps, y - eps},
		[2]float64{x + eps, y + eps},
		func(_, _ [2]float64, triangle int) bool {
			l, ok := t.barycentric(triangle, x, y)
			if !ok {
				return true
			}
			found, lambda = triangle, l
			return false
		},
	)
	return found, lambda, found >= 0
}

func (t *triangulation) barycentric(triangle int, x, y float64) ([3]float64, bool) {
	a, b, c := t.vertices(triangle)
	xa, ya := t.xs[a], t.ys[a]
	xb, yb := t.xs[b], t.ys[b]
	xc, yc := t.xs[c], t.ys[c]
	det := (yb-yc)*(xa-xc) + (xc-xb)*(ya-yc)
	if det == 0 {
		return [3]float64{}, false
	}
	l1 := ((yb-yc)*(x-xc) + (xc-xb)*(y-yc)) / det
	l2 := ((yc-ya)*(x-xc) + (xa-xc)*(y-yc)) / det
	l3 := 1 - l1 - l2
	if l1 < -barycentricTolerance || l2 < -barycentricTolerance || l3 < -barycentricTolerance {
		return [3]float64{}, false
	}
	return [3]float64{l1, l2, l3}, true
}

func (t *triangulation) vertices(triangle int) (int, int, int) {
	return t.triangles[3*triangle], t.triangles[3*triangle+1], t.triangles[3*triangle+2]
}

// linear returns the piecewise linear interpolant at x, y, or NaN outside
// the convex hull.
func (t *triangulation) linear(x, y float64) float64 {
	triangle, l, ok := t.locate(x, y)
	if !ok {
		return math.NaN()
	}
	a, b, c := t.vertices(triangle)
	return l[0]*t.zs[a] + l[1]*t.zs[b] + l[2]*t.zs[c]
}

// cubicEvaluator returns a piecewise cubic interpolant. Each triangle is a
// cubic Bézier patch whose edge control points come from vertex gradients
// estimated by least squares over neighboring vertices. The interpolant
// reproduces planes exactly and is NaN outside the convex hull.
func (t *triangulation) cubicEvaluator() func(x, y float64) float64 {
	gradients := t.gradients()
	return func(x, y float64) float64 {
		triangle, l, ok := t.locate(x, y)
		if !ok {
			return math.NaN()
		}
		a, b, c := t.vertices(triangle)
		u, v, w := l[0], l[1], l[2]

		fa, fb, fc := t.zs[a], t.zs[b], t.zs[c]
		edge := func(from, to int, f float64) float64 {
			g := gradients[from]
			return f + (g[0]*(t.xs[to]-t.xs[from])+g[1]*(t.ys[to]-t.ys[from]))/3
		}
		b210 := edge(a, b, fa)
		b201 := edge(a, c, fa)
		b120 := edge(b, a, fb)
		b021 := edge(b, c, fb)
		b102 := edge(c, a, fc)
		b012 := edge(c, b, fc)
		e := (b210 + b201 + b120 + b021 + b102 + b012) / 6
		vertexMean := (fa + fb + fc) / 3
		b111 := e + (e-vertexMean)/2

		return 0 +
			fa*u*u*u + fb*v*v*v + fc*w*w*w +
			3*b210*u*u*v + 3*b201*u*u*w +
			3*b120*u*v*v + 3*b021*v*v*w +
			3*b102*u*w*w + 3*b012*v*w*w +
			6*b111*u*v*w
	}
}

// gradients estimates the gradient at every vertex by inverse distance
// squared weighted least squares over its neighbors in the triangulation.
func (t *triangulation) gradients() [][2]float64 {
	neighbors := make([]map[int]struct{}, len(t.xs))
	addEdge := func(i, j int) {
		if neighbors[i] == nil {
			neighbors[i] = make(map[int]struct{})
		}
		neighbors[i][j] = struct{}{}
	}
	for triangle := range len(t.triangles) / 3 {
		a, b, c := t.vertices(triangle)
		addEdge(a, b)
		addEdge(a, c)
		addEdge(b, a)
		addEdge(b, c)
		addEdge(c, a)
		addEdge(c, b)
	}

	gradients := make([][2]float64, len(t.xs))
	for i := range t.xs {
		var sxx, sxy, syy, sxz, syz float64
		for j := range neighbors[i] {
			dx, dy, dz := t.xs[j]-t.xs[i], t.ys[j]-t.ys[i], t.zs[j]-t.zs[i]
			d2 := dx*dx + dy*dy
			if d2 == 0 {
				continue
			}
			weight := 1 / d2
			sxx += weight * dx * dx
			sxy += weight * dx * dy
			syy += weight * dy * dy
			sxz += weight * dx * dz
			syz += weight * dy * dz
		}
		det := sxx*syy - sxy*sxy
		if det == 0 {
			continue
		}
		gradients[i] = [2]float64{
			(sxz*syy - syz*sxy) / det,
			(syz*sxx - sxz*sxy) / det,
		}
	}
	return gradients
}
