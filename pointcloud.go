// Package pointcloud defines a dense 3D point cloud and the index structures
// needed to register one cloud against another.
//
// Points are stored in insertion order and addressed by index, which is what
// the registration kernel in the registration subpackage works in terms of.
package pointcloud

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	HasNormals bool

	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64

	totalX, totalY, totalZ float64
}

// PointCloud is a dense, ordered collection of points with optional per-point
// normals. The zero value is an empty cloud.
type PointCloud struct {
	points  []r3.Vector
	normals []r3.Vector
	meta    MetaData
}

// New returns an empty PointCloud.
func New() *PointCloud {
	return NewWithPrealloc(0)
}

// NewWithPrealloc returns an empty PointCloud with capacity for size points.
func NewWithPrealloc(size int) *PointCloud {
	return &PointCloud{
		points: make([]r3.Vector, 0, size),
		meta:   NewMetaData(),
	}
}

// NewFromPoints returns a PointCloud holding a copy of the given points.
func NewFromPoints(points []r3.Vector) *PointCloud {
	cloud := NewWithPrealloc(len(points))
	for _, p := range points {
		cloud.Add(p)
	}
	return cloud
}

// NewMetaData returns a new MetaData struct with everything initialized.
func NewMetaData() MetaData {
	return MetaData{
		MinX: maxPreciseFloat64, MaxX: -maxPreciseFloat64,
		MinY: maxPreciseFloat64, MaxY: -maxPreciseFloat64,
		MinZ: maxPreciseFloat64, MaxZ: -maxPreciseFloat64,
	}
}

const maxPreciseFloat64 = float64(9007199254740992)

// Merge updates the meta data with the new point.
func (meta *MetaData) Merge(v r3.Vector) {
	if v.X > meta.MaxX {
		meta.MaxX = v.X
	}
	if v.Y > meta.MaxY {
		meta.MaxY = v.Y
	}
	if v.Z > meta.MaxZ {
		meta.MaxZ = v.Z
	}
	if v.X < meta.MinX {
		meta.MinX = v.X
	}
	if v.Y < meta.MinY {
		meta.MinY = v.Y
	}
	if v.Z < meta.MinZ {
		meta.MinZ = v.Z
	}
	meta.totalX += v.X
	meta.totalY += v.Y
	meta.totalZ += v.Z
}

// Size returns the number of points in the cloud.
func (cloud *PointCloud) Size() int {
	return len(cloud.points)
}

// MetaData returns the meta data.
func (cloud *PointCloud) MetaData() MetaData {
	return cloud.meta
}

// Point returns the point at the given index.
func (cloud *PointCloud) Point(i int) r3.Vector {
	return cloud.points[i]
}

// Points returns the backing point slice. Callers must not mutate it.
func (cloud *PointCloud) Points() []r3.Vector {
	return cloud.points
}

// HasNormals returns whether the cloud carries per-point normals.
func (cloud *PointCloud) HasNormals() bool {
	return len(cloud.normals) == len(cloud.points) && len(cloud.normals) > 0
}

// Normal returns the normal of the point at the given index.
func (cloud *PointCloud) Normal(i int) r3.Vector {
	return cloud.normals[i]
}

// Add appends a point to the cloud.
func (cloud *PointCloud) Add(p r3.Vector) {
	cloud.points = append(cloud.points, p)
	cloud.meta.Merge(p)
}

// AddWithNormal appends a point and its normal to the cloud. Mixing Add and
// AddWithNormal on one cloud leaves the cloud without usable normals.
func (cloud *PointCloud) AddWithNormal(p, n r3.Vector) {
	cloud.points = append(cloud.points, p)
	cloud.normals = append(cloud.normals, n)
	cloud.meta.Merge(p)
	cloud.meta.HasNormals = len(cloud.normals) == len(cloud.points)
}

// Clone returns a deep copy of the cloud.
func (cloud *PointCloud) Clone() *PointCloud {
	clone := &PointCloud{
		points: append([]r3.Vector(nil), cloud.points...),
		meta:   cloud.meta,
	}
	if cloud.normals != nil {
		clone.normals = append([]r3.Vector(nil), cloud.normals...)
	}
	return clone
}

// CopyFrom overwrites the cloud's contents with those of other, reusing the
// receiver's storage where possible.
func (cloud *PointCloud) CopyFrom(other *PointCloud) {
	cloud.points = append(cloud.points[:0], other.points...)
	cloud.normals = append(cloud.normals[:0], other.normals...)
	cloud.meta = other.meta
}

// Centroid returns the mean position of all points in the cloud. An empty
// cloud has a centroid of (0, 0, 0).
func (cloud *PointCloud) Centroid() r3.Vector {
	if len(cloud.points) == 0 {
		return r3.Vector{}
	}
	n := float64(len(cloud.points))
	return r3.Vector{
		X: cloud.meta.totalX / n,
		Y: cloud.meta.totalY / n,
		Z: cloud.meta.totalZ / n,
	}
}

// Transform applies a 4x4 homogeneous transform to every point in place,
// treating points as homogeneous with w = 1. Normals, when present, are
// rotated by the upper-left 3x3 block.
func (cloud *PointCloud) Transform(t *mat.Dense) {
	meta := NewMetaData()
	meta.HasNormals = cloud.meta.HasNormals
	for i, p := range cloud.points {
		cloud.points[i] = TransformPoint(t, p)
		meta.Merge(cloud.points[i])
	}
	for i, n := range cloud.normals {
		cloud.normals[i] = RotateVector(t, n)
	}
	cloud.meta = meta
}

// TransformPoint applies a 4x4 homogeneous transform to a single point.
func TransformPoint(t *mat.Dense, p r3.Vector) r3.Vector {
	return r3.Vector{
		X: t.At(0, 0)*p.X + t.At(0, 1)*p.Y + t.At(0, 2)*p.Z + t.At(0, 3),
		Y: t.At(1, 0)*p.X + t.At(1, 1)*p.Y + t.At(1, 2)*p.Z + t.At(1, 3),
		Z: t.At(2, 0)*p.X + t.At(2, 1)*p.Y + t.At(2, 2)*p.Z + t.At(2, 3),
	}
}

// RotateVector applies only the rotation block of a 4x4 homogeneous
// transform to a direction vector.
func RotateVector(t *mat.Dense, v r3.Vector) r3.Vector {
	return r3.Vector{
		X: t.At(0, 0)*v.X + t.At(0, 1)*v.Y + t.At(0, 2)*v.Z,
		Y: t.At(1, 0)*v.X + t.At(1, 1)*v.Y + t.At(1, 2)*v.Z,
		Z: t.At(2, 0)*v.X + t.At(2, 1)*v.Y + t.At(2, 2)*v.Z,
	}
}
