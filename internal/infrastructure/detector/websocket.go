// Package detector клиент внешнего детектора объектов по WebSocket.
package detector

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"lpr-gate/internal/domain/entity"
	"lpr-gate/internal/domain/port"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// response ответ сервиса на один кадр
type response struct {
	Detections []struct {
		BBox       []int   `json:"bbox"` // x1, y1, x2, y2
		Class      string  `json:"class"`
		Confidence float64 `json:"confidence"`
	} `json:"detections"`
	Error string `json:"error,omitempty"`
}

// WebSocketDetector отправляет кадр JPEG-ом бинарным сообщением и читает JSON с рамками.
// Соединение одно, запросы сериализуются; после ошибки соединение пересоздаётся при следующем вызове.
type WebSocketDetector struct {
	url          string
	quality      int
	readTimeout  time.Duration
	writeTimeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
	log  logrus.FieldLogger
}

var _ port.PlateDetector = (*WebSocketDetector)(nil)

func NewWebSocketDetector(url string, log logrus.FieldLogger) *WebSocketDetector {
	return &WebSocketDetector{
		url:          url,
		quality:      90,
		readTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Second,
		log:          log,
	}
}

func (d *WebSocketDetector) connect(ctx context.Context) (*websocket.Conn, error) {
	if d.conn != nil {
		return d.conn, nil
	}
	if d.url == "" {
		return nil, fmt.Errorf("detector URL not configured")
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", d.url, err)
	}
	d.log.WithField("url", d.url).Info("connected to detector")

	d.conn = conn
	return conn, nil
}

func (d *WebSocketDetector) drop() {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

// Detect отправляет кадр и возвращает рамки в координатах кадра
func (d *WebSocketDetector) Detect(ctx context.Context, frame image.Image) ([]entity.Detection, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, frame, imaging.JPEG, imaging.JPEGQuality(d.quality)); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	conn, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}

	conn.SetWriteDeadline(time.Now().Add(d.writeTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
		d.drop()
		return nil, fmt.Errorf("error sending frame: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(d.readTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		d.drop()
		return nil, fmt.Errorf("error reading detections: %w", err)
	}

	var resp response
	if err := json.Unmarshal(message, &resp); err != nil {
		return nil, fmt.Errorf("error unmarshaling detections: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("detector: %s", resp.Error)
	}

	origin := frame.Bounds().Min
	detections := make([]entity.Detection, 0, len(resp.Detections))
	for _, r := range resp.Detections {
		if len(r.BBox) != 4 {
			d.log.WithField("bbox", r.BBox).Warn("skipping malformed bbox")
			continue
		}
		detections = append(detections, entity.Detection{
			Box: entity.BoundingBox{
				X1: r.BBox[0] + origin.X,
				Y1: r.BBox[1] + origin.Y,
				X2: r.BBox[2] + origin.X,
				Y2: r.BBox[3] + origin.Y,
			},
			Class:      r.Class,
			Confidence: r.Confidence,
		})
	}
	return detections, nil
}

// Close закрывает соединение
func (d *WebSocketDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drop()
	return nil
}
