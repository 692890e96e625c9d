package vision

import (
	"errors"
	"math"

	"lpr-gate/internal/domain/entity"
)

var errSingular = errors.New("degenerate quad: homography is singular")

// homography матрица 3x3 проективного преобразования, h[8] = 1
type homography [9]float64

// newHomography решает систему 8x8 для четырёх пар точек from[i] -> to[i]
func newHomography(from, to [4]entity.Point) (homography, error) {
	var a [8][9]float64
	for i := 0; i < 4; i++ {
		x, y := from[i].X, from[i].Y
		u, v := to[i].X, to[i].Y
		a[2*i] = [9]float64{x, y, 1, 0, 0, 0, -x * u, -y * u, u}
		a[2*i+1] = [9]float64{0, 0, 0, x, y, 1, -x * v, -y * v, v}
	}

	// прямой ход Гаусса с выбором главного элемента
	for col := 0; col < 8; col++ {
		pivot := col
		for r := col + 1; r < 8; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return homography{}, errSingular
		}
		a[col], a[pivot] = a[pivot], a[col]

		for r := col + 1; r < 8; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < 9; c++ {
				a[r][c] -= f * a[col][c]
			}
		}
	}

	var h homography
	for r := 7; r >= 0; r-- {
		s := a[r][8]
		for c := r + 1; c < 8; c++ {
			s -= a[r][c] * h[c]
		}
		h[r] = s / a[r][r]
	}
	h[8] = 1
	return h, nil
}

// apply переводит точку; ok=false, если точка уходит в бесконечность
func (h homography) apply(x, y float64) (float64, float64, bool) {
	w := h[6]*x + h[7]*y + h[8]
	if math.Abs(w) < 1e-12 {
		return 0, 0, false
	}
	return (h[0]*x + h[1]*y + h[2]) / w, (h[3]*x + h[4]*y + h[5]) / w, true
}
