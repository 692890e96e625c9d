package entity

import (
	"fmt"
	"image"
	"math"
)

// Point точка на плоскости (координаты кадра или вырезки)
type Point struct {
	X float64
	Y float64
}

// Add сдвигает точку на смещение
func (p Point) Add(offset image.Point) Point {
	return Point{X: p.X + float64(offset.X), Y: p.Y + float64(offset.Y)}
}

// Dist возвращает евклидово расстояние между точками
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// BoundingBox прямоугольник, найденный внешним детектором.
// Координаты относительно кадра и могут выходить за его границы.
type BoundingBox struct {
	X1 int
	Y1 int
	X2 int
	Y2 int
}

// Validate проверяет инвариант X1<X2, Y1<Y2
func (b BoundingBox) Validate() error {
	if b.X1 >= b.X2 || b.Y1 >= b.Y2 {
		return fmt.Errorf("bounding box (%d,%d)-(%d,%d): %w", b.X1, b.Y1, b.X2, b.Y2, ErrInvalidInput)
	}
	return nil
}

// Rect переводит рамку в image.Rectangle
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Expand расширяет рамку на margin со всех сторон и обрезает по границам bounds
func (b BoundingBox) Expand(margin int, bounds image.Rectangle) image.Rectangle {
	r := image.Rect(b.X1-margin, b.Y1-margin, b.X2+margin, b.Y2+margin)
	return r.Intersect(bounds)
}

// Quad четыре угла номера в порядке TL, TR, BR, BL
type Quad [4]Point

// Индексы углов внутри Quad
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// NewQuad собирает Quad из среза точек; длина должна быть ровно 4
func NewQuad(points []Point) (Quad, error) {
	var q Quad
	if len(points) != 4 {
		return q, fmt.Errorf("quad needs 4 points, got %d: %w", len(points), ErrInvalidInput)
	}
	copy(q[:], points)
	return q, nil
}

// Translate сдвигает все углы (локальные координаты вырезки -> координаты кадра)
func (q Quad) Translate(offset image.Point) Quad {
	var out Quad
	for i, p := range q {
		out[i] = p.Add(offset)
	}
	return out
}

// Size возвращает размеры выпрямленного прямоугольника: максимум противоположных сторон,
// каждая округлена вниз
func (q Quad) Size() (width, height int) {
	widthA := int(q[BottomRight].Dist(q[BottomLeft]))
	widthB := int(q[TopRight].Dist(q[TopLeft]))
	heightA := int(q[TopRight].Dist(q[BottomRight]))
	heightB := int(q[TopLeft].Dist(q[BottomLeft]))
	return max(widthA, widthB), max(heightA, heightB)
}

// Area площадь четырёхугольника по формуле шнурования
func (q Quad) Area() float64 {
	var s float64
	for i := range q {
		j := (i + 1) % len(q)
		s += q[i].X*q[j].Y - q[j].X*q[i].Y
	}
	return math.Abs(s) / 2
}

// OrderCorners упорядочивает произвольные 4 точки как TL, TR, BR, BL:
// TL имеет минимальную сумму x+y, BR максимальную, TR минимальную разность y-x, BL максимальную.
func OrderCorners(points [4]Point) Quad {
	var q Quad
	minSum, maxSum := math.Inf(1), math.Inf(-1)
	minDiff, maxDiff := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		sum, diff := p.X+p.Y, p.Y-p.X
		if sum < minSum {
			minSum, q[TopLeft] = sum, p
		}
		if sum > maxSum {
			maxSum, q[BottomRight] = sum, p
		}
		if diff < minDiff {
			minDiff, q[TopRight] = diff, p
		}
		if diff > maxDiff {
			maxDiff, q[BottomLeft] = diff, p
		}
	}
	return q
}
