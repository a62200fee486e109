package orientation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// IMU message kinds on the ZeroMQ feed.
const (
	KindOrientation = "orientation"
	KindMotion      = "motion"
)

// IMUMessage is the CBOR payload published by an IMU daemon.
// Messages may be sent as [topic, payload] multipart or as a bare payload.
type IMUMessage struct {
	Kind        string                  `cbor:"kind"`
	Orientation *gaze.OrientationSample `cbor:"orientation,omitempty"`
	Motion      *gaze.DeviceMotion      `cbor:"motion,omitempty"`
}

// ZMQConfig configures the ZeroMQ IMU feed.
type ZMQConfig struct {
	Endpoint    string        // e.g. "tcp://127.0.0.1:5556"
	Topic       string        // Subscription prefix, "" for all
	RecvTimeout time.Duration // Poll granularity for shutdown
}

// DefaultZMQConfig returns the default feed configuration.
func DefaultZMQConfig() ZMQConfig {
	return ZMQConfig{
		Endpoint:    "tcp://127.0.0.1:5556",
		Topic:       "imu",
		RecvTimeout: 100 * time.Millisecond,
	}
}

// ZMQPlatform subscribes to an IMU daemon over a ZeroMQ SUB socket.
// Local sensors need no consent.
type ZMQPlatform struct {
	cfg    ZMQConfig
	logger *slog.Logger
}

// NewZMQPlatform creates a platform for the given feed.
func NewZMQPlatform(cfg ZMQConfig, logger *slog.Logger) *ZMQPlatform {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RecvTimeout <= 0 {
		cfg.RecvTimeout = 100 * time.Millisecond
	}
	return &ZMQPlatform{cfg: cfg, logger: logger}
}

// Supported implements Platform.
func (z *ZMQPlatform) Supported() bool {
	return z.cfg.Endpoint != ""
}

// RequiresConsent implements Platform.
func (z *ZMQPlatform) RequiresConsent() bool {
	return false
}

// RequestPermission implements Platform.
func (z *ZMQPlatform) RequestPermission(ctx context.Context) (gaze.Permission, error) {
	return gaze.PermissionGranted, nil
}

// Subscribe connects the SUB socket and delivers decoded samples until cancel.
func (z *ZMQPlatform) Subscribe(h Handler) (func(), error) {
	socket, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, fmt.Errorf("create socket: %w", err)
	}
	if err := socket.SetRcvtimeo(z.cfg.RecvTimeout); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("set receive timeout: %w", err)
	}
	if err := socket.Connect(z.cfg.Endpoint); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("%w: connect %s: %v", gaze.ErrDeviceUnavailable, z.cfg.Endpoint, err)
	}
	if err := socket.SetSubscribe(z.cfg.Topic); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("subscribe %q: %w", z.cfg.Topic, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer socket.Close()
		z.recvLoop(socket, stop, h)
	}()

	z.logger.Info("IMU feed connected", "endpoint", z.cfg.Endpoint, "topic", z.cfg.Topic)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
		})
	}, nil
}

func (z *ZMQPlatform) recvLoop(socket *zmq4.Socket, stop <-chan struct{}, h Handler) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		frames, err := socket.RecvMessageBytes(0)
		if err != nil {
			// Receive timeout; loop to check for stop
			continue
		}
		if len(frames) == 0 {
			continue
		}

		msg, err := DecodeIMUMessage(frames[len(frames)-1])
		if err != nil {
			z.logger.Debug("IMU decode skipped message", "error", err)
			continue
		}

		switch msg.Kind {
		case KindOrientation:
			if msg.Orientation != nil && h.Orientation != nil {
				h.Orientation(*msg.Orientation)
			}
		case KindMotion:
			if msg.Motion != nil && h.Motion != nil {
				h.Motion(*msg.Motion)
			}
		}
	}
}

// EncodeIMUMessage encodes a message for the IMU feed.
func EncodeIMUMessage(msg IMUMessage) ([]byte, error) {
	return cbor.Marshal(msg)
}

// DecodeIMUMessage decodes one CBOR IMU payload.
func DecodeIMUMessage(data []byte) (IMUMessage, error) {
	var msg IMUMessage
	if err := cbor.Unmarshal(data, &msg); err != nil {
		return IMUMessage{}, fmt.Errorf("decode IMU message: %w", err)
	}
	if msg.Kind != KindOrientation && msg.Kind != KindMotion {
		return IMUMessage{}, fmt.Errorf("unknown IMU message kind %q", msg.Kind)
	}
	return msg, nil
}
