package vision

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"lpr-gate/internal/domain/entity"
)

// Equalize переводит изображение в яркость и выравнивает гистограмму.
// Результат всегда одноканальный, размер совпадает со входом.
func Equalize(img image.Image) (*image.Gray, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("filter: %w", entity.ErrEmptyRegion)
	}

	nrgba := imaging.Grayscale(img)
	w, h := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	gray := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gray.Pix[y*gray.Stride+x] = nrgba.Pix[y*nrgba.Stride+x*4]
		}
	}

	equalizeHist(gray)
	return gray, nil
}

// equalizeHist выравнивает гистограмму на месте через LUT по накопленной гистограмме:
// самый тёмный уровень уходит в 0, самый светлый в 255.
func equalizeHist(g *image.Gray) {
	var hist [256]int
	for _, v := range g.Pix {
		hist[v]++
	}

	total := len(g.Pix)
	first := 0
	for first < 255 && hist[first] == 0 {
		first++
	}
	// однотонное изображение не меняем
	if hist[first] == total {
		return
	}

	var lut [256]uint8
	scale := 255.0 / float64(total-hist[first])
	sum := 0
	for i := first + 1; i < 256; i++ {
		sum += hist[i]
		lut[i] = uint8(math.Min(255, math.Round(float64(sum)*scale)))
	}

	for i, v := range g.Pix {
		g.Pix[i] = lut[v]
	}
}
