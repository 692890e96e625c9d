package vision

import (
	"image"

	"github.com/disintegration/imaging"

	"lpr-gate/internal/domain/entity"
)

// CornerLocator ищет контур номера внутри вырезки без OpenCV:
// порог Оцу, самая крупная связная область, крайние точки как углы.
type CornerLocator struct {
	BlurSigma    float64 // 0 отключает размытие
	MinAreaRatio float64 // минимальная доля площади вырезки
	MinFillRatio float64 // площадь четырёхугольника / площадь области; отсекает круги и треугольники
	MaxFillRatio float64
}

// NewCornerLocator создаёт локатор с порогами по умолчанию
func NewCornerLocator() *CornerLocator {
	return &CornerLocator{
		BlurSigma:    1.0,
		MinAreaRatio: 0.1,
		MinFillRatio: 0.85,
		MaxFillRatio: 1.15,
	}
}

// Locate возвращает упорядоченный четырёхугольник в координатах вырезки или false
func (l *CornerLocator) Locate(crop image.Image) (entity.Quad, bool) {
	if crop == nil || crop.Bounds().Empty() {
		return entity.Quad{}, false
	}

	gray := imaging.Grayscale(crop)
	if l.BlurSigma > 0 {
		gray = imaging.Blur(gray, l.BlurSigma)
	}
	w, h := gray.Rect.Dx(), gray.Rect.Dy()

	lum := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < w; x++ {
			lum[y*w+x] = row[x*4]
		}
	}

	t, ok := otsuThreshold(lum)
	if !ok {
		return entity.Quad{}, false
	}

	mask := make([]bool, len(lum))
	for i, v := range lum {
		mask[i] = v > t
	}

	pixels := largestComponent(mask, w, h)
	if float64(len(pixels)) < l.MinAreaRatio*float64(w*h) {
		return entity.Quad{}, false
	}

	quad := extremePoints(pixels, w)

	qw, qh := quad.Size()
	if qw < 2 || qh < 2 {
		return entity.Quad{}, false
	}
	// по формуле Пика: пикселей примерно площадь + периметр/2 + 1
	fill := (quad.Area() + perimeter(quad)/2 + 1) / float64(len(pixels))
	if fill < l.MinFillRatio || fill > l.MaxFillRatio {
		return entity.Quad{}, false
	}
	return quad, true
}

// otsuThreshold выбирает порог, максимизирующий межклассовую дисперсию.
// false, если изображение однотонное.
func otsuThreshold(lum []uint8) (uint8, bool) {
	var hist [256]int
	for _, v := range lum {
		hist[v]++
	}

	total := float64(len(lum))
	var sumAll float64
	for i, n := range hist {
		sumAll += float64(i * n)
	}

	var (
		sumB, wB float64
		best     float64
		t        uint8
		found    bool
	)
	for i := 0; i < 255; i++ {
		wB += float64(hist[i])
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(i * hist[i])
		mB := sumB / wB
		mF := (sumAll - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best, t, found = between, uint8(i), true
		}
	}
	return t, found
}

// largestComponent возвращает индексы пикселей самой крупной 4-связной области маски
func largestComponent(mask []bool, w, h int) []int {
	seen := make([]bool, len(mask))
	var best []int
	queue := make([]int, 0, 64)

	for start := range mask {
		if !mask[start] || seen[start] {
			continue
		}

		component := []int{start}
		seen[start] = true
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			x, y := i%w, i/w

			for _, n := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				nx, ny := n[0], n[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if mask[j] && !seen[j] {
					seen[j] = true
					component = append(component, j)
					queue = append(queue, j)
				}
			}
		}

		if len(component) > len(best) {
			best = component
		}
	}
	return best
}

// extremePoints берёт по одной точке с минимальной/максимальной x+y и y-x
func extremePoints(pixels []int, w int) entity.Quad {
	minSum, maxSum := pixels[0], pixels[0]
	minDiff, maxDiff := pixels[0], pixels[0]
	sum := func(i int) int { return i%w + i/w }
	diff := func(i int) int { return i/w - i%w }

	for _, i := range pixels[1:] {
		if sum(i) < sum(minSum) {
			minSum = i
		}
		if sum(i) > sum(maxSum) {
			maxSum = i
		}
		if diff(i) < diff(minDiff) {
			minDiff = i
		}
		if diff(i) > diff(maxDiff) {
			maxDiff = i
		}
	}

	var pts [4]entity.Point
	for k, i := range [4]int{minSum, minDiff, maxSum, maxDiff} {
		pts[k] = entity.Point{X: float64(i % w), Y: float64(i / w)}
	}
	return entity.OrderCorners(pts)
}

func perimeter(q entity.Quad) float64 {
	var p float64
	for i := range q {
		p += q[i].Dist(q[(i+1)%len(q)])
	}
	return p
}
