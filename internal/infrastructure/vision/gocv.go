//go:build gocv
// +build gocv

package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sort"

	"gocv.io/x/gocv"

	"lpr-gate/internal/domain/entity"
	"lpr-gate/internal/domain/port"
)

// GoCV реализация port.PlateVision и port.FrameRenderer на OpenCV
type GoCV struct {
	MinAreaRatio float64 // минимальная доля площади вырезки для контура
	Candidates   int     // сколько крупнейших контуров проверять
	Epsilon      float64 // точность аппроксимации как доля периметра
}

var (
	_ port.PlateVision   = (*GoCV)(nil)
	_ port.FrameRenderer = (*GoCV)(nil)
)

// NewGoCV создаёт back-end с порогами по умолчанию
func NewGoCV() (*GoCV, error) {
	return &GoCV{
		MinAreaRatio: 0.1,
		Candidates:   10,
		Epsilon:      0.018,
	}, nil
}

func (g *GoCV) Extract(frame image.Image, box entity.BoundingBox, margin int) (image.Image, image.Point, error) {
	return ExtractRegion(frame, box, margin)
}

// Locate ищет крупнейший контур, который аппроксимируется четырьмя вершинами
func (g *GoCV) Locate(crop image.Image) (entity.Quad, bool) {
	mat, err := gocv.ImageToMatRGB(crop)
	if err != nil || mat.Empty() {
		return entity.Quad{}, false
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	blur := gocv.NewMat()
	defer blur.Close()
	gocv.GaussianBlur(gray, &blur, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blur, &edges, 30, 200)

	contours := gocv.FindContours(edges, gocv.RetrievalList, gocv.ChainApproxSimple)
	defer contours.Close()

	idx := make([]int, contours.Size())
	areas := make([]float64, contours.Size())
	for i := range idx {
		idx[i] = i
		areas[i] = gocv.ContourArea(contours.At(i))
	}
	sort.Slice(idx, func(a, b int) bool { return areas[idx[a]] > areas[idx[b]] })

	minArea := g.MinAreaRatio * float64(mat.Cols()*mat.Rows())
	for n, i := range idx {
		if n >= g.Candidates || areas[i] < minArea {
			break
		}

		c := contours.At(i)
		approx := gocv.ApproxPolyDP(c, g.Epsilon*gocv.ArcLength(c, true), true)
		pts := approx.ToPoints()
		approx.Close()
		if len(pts) != 4 {
			continue
		}

		var corners [4]entity.Point
		for k, p := range pts {
			corners[k] = entity.Point{X: float64(p.X), Y: float64(p.Y)}
		}
		return entity.OrderCorners(corners), true
	}
	return entity.Quad{}, false
}

func (g *GoCV) Rectify(src image.Image, quad entity.Quad) (image.Image, error) {
	w, h := quad.Size()
	if w < 2 || h < 2 {
		return nil, fmt.Errorf("rectify: target %dx%d: %w", w, h, entity.ErrEmptyRegion)
	}

	mat, err := gocv.ImageToMatRGB(src)
	if err != nil {
		return nil, fmt.Errorf("rectify: %w", err)
	}
	defer mat.Close()

	origin := src.Bounds().Min
	from := make([]gocv.Point2f, 4)
	for i, p := range quad {
		from[i] = gocv.Point2f{X: float32(p.X - float64(origin.X)), Y: float32(p.Y - float64(origin.Y))}
	}
	to := []gocv.Point2f{
		{X: 0, Y: 0},
		{X: float32(w - 1), Y: 0},
		{X: float32(w - 1), Y: float32(h - 1)},
		{X: 0, Y: float32(h - 1)},
	}

	srcVec := gocv.NewPoint2fVectorFromPoints(from)
	defer srcVec.Close()
	dstVec := gocv.NewPoint2fVectorFromPoints(to)
	defer dstVec.Close()

	m := gocv.GetPerspectiveTransform2f(srcVec, dstVec)
	defer m.Close()
	if m.Empty() {
		return nil, fmt.Errorf("rectify: singular transform: %w", entity.ErrInvalidInput)
	}

	warped := gocv.NewMat()
	defer warped.Close()
	gocv.WarpPerspective(mat, &warped, m, image.Pt(w, h))

	return warped.ToImage()
}

func (g *GoCV) Filter(img image.Image) (*image.Gray, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("filter: %w", entity.ErrEmptyRegion)
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	eq := gocv.NewMat()
	defer eq.Close()
	gocv.EqualizeHist(gray, &eq)

	out, err := eq.ToImage()
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	g8, ok := out.(*image.Gray)
	if !ok {
		return nil, errors.New("filter: unexpected mat type")
	}
	return g8, nil
}

// Render рисует рамку и текст средствами OpenCV
func (g *GoCV) Render(frame image.Image, annotations []entity.Annotation) image.Image {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return frame
	}
	defer mat.Close()

	green := color.RGBA{G: 255, A: 255}
	origin := frame.Bounds().Min
	for _, a := range annotations {
		r := a.Box.Rect().Sub(origin)
		gocv.Rectangle(&mat, r, green, 2)
		gocv.PutText(&mat, a.Text, image.Pt(r.Min.X, r.Min.Y-10), gocv.FontHersheySimplex, 0.9, green, 2)
	}

	out, err := mat.ToImage()
	if err != nil {
		return frame
	}
	return out
}
