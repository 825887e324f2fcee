//go:build gocv
// +build gocv

package ai

import (
	"context"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
)

// GoCVDetector runs an OpenCV DNN model. A gocv.Net must not be shared
// between goroutines; put several detectors in a Pool instead.
type GoCVDetector struct {
	net          gocv.Net
	kind         string
	labels       []string
	nmsThreshold float32
}

// NewGoCVDetector loads the network and sets backend/target preferences.
func NewGoCVDetector(opts Options) (*GoCVDetector, error) {
	if _, err := os.Stat(opts.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", opts.ModelPath)
	}
	if opts.ConfigPath != "" {
		if _, err := os.Stat(opts.ConfigPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", opts.ConfigPath)
		}
	}

	kind := opts.Kind
	if kind == "" {
		kind = KindYOLOv8
	}
	if kind != KindSSD && kind != KindYOLOv8 {
		return nil, fmt.Errorf("unknown model kind %q", kind)
	}

	net := gocv.ReadNet(opts.ModelPath, opts.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", opts.ModelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable target: %w", err)
	}

	labels := opts.Labels
	if len(labels) == 0 {
		labels = COCOLabels
	}
	nms := opts.NMSThreshold
	if nms <= 0 {
		nms = DefaultNMSThreshold
	}

	return &GoCVDetector{net: net, kind: kind, labels: labels, nmsThreshold: nms}, nil
}

// Predict runs one forward pass. ctx is checked before inference starts;
// a running forward pass is not interrupted.
func (d *GoCVDetector) Predict(ctx context.Context, frame image.Image, threshold float32) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}

	var detections []Detection
	switch d.kind {
	case KindSSD:
		detections, err = d.forwardSSD(mat, threshold)
	default:
		detections, err = d.forwardYOLOv8(mat, threshold)
	}
	if err != nil {
		return nil, err
	}

	offset := frame.Bounds().Min
	for i := range detections {
		detections[i].Box = detections[i].Box.Add(offset)
	}
	return FilterByConfidence(detections, threshold), nil
}

// forwardSSD runs a 300x300 SSD MobileNet pass.
func (d *GoCVDetector) forwardSSD(mat gocv.Mat, threshold float32) ([]Detection, error) {
	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read ssd output: %w", err)
	}
	return DecodeSSD(data, image.Pt(mat.Cols(), mat.Rows()), d.labels, threshold), nil
}

// forwardYOLOv8 runs a 640x640 pass of an exported YOLOv8 ONNX model.
func (d *GoCVDetector) forwardYOLOv8(mat gocv.Mat, threshold float32) ([]Detection, error) {
	const inputSize = 640

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(inputSize, inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	sizes := output.Size()
	if len(sizes) != 3 {
		return nil, fmt.Errorf("unexpected yolov8 output shape %v", sizes)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read yolov8 output: %w", err)
	}

	out := YOLOv8Output{Data: data, Channels: sizes[1], Anchors: sizes[2], InputSize: inputSize}
	return DecodeYOLOv8(out, image.Pt(mat.Cols(), mat.Rows()), d.labels, threshold, d.nmsThreshold), nil
}

// Close releases the network.
func (d *GoCVDetector) Close() error {
	return d.net.Close()
}
