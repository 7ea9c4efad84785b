package detect

import (
	"fmt"
	"image"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/models"
)

// YOLODetector runs a YOLOv8-style single-output detection model using ONNX
// Runtime. The same decode serves the weapon, person and face-emotion models;
// they differ only in weights, class names and the detection kind they emit.
type YOLODetector struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	kind         models.Kind
	classes      []string
	classFilter  map[int]bool // nil means all classes pass
	threshold    float32
	inputW       int
	inputH       int
	numAnchors   int
}

const yoloInputSize = 640

// NewYOLODetector loads a YOLOv8 detection model. classFilter limits which
// class indices are emitted (nil keeps all); each kept detection carries the
// class name as its label.
func NewYOLODetector(modelPath string, kind models.Kind, classes []string, classFilter []int, threshold float32, opts *ort.SessionOptions) (*YOLODetector, error) {
	inputW, inputH := yoloInputSize, yoloInputSize
	numAnchors := 8400 // (80*80 + 40*40 + 20*20) at strides 8/16/32

	inputShape := ort.NewShape(1, 3, int64(inputH), int64(inputW))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	// Output layout: [1, 4+numClasses, numAnchors] — box cx,cy,w,h rows
	// followed by one score row per class.
	outputShape := ort.NewShape(1, int64(4+len(classes)), int64(numAnchors))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create %s detector session: %w", kind, err)
	}

	var filter map[int]bool
	if classFilter != nil {
		filter = make(map[int]bool, len(classFilter))
		for _, c := range classFilter {
			filter[c] = true
		}
	}

	return &YOLODetector{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		kind:         kind,
		classes:      classes,
		classFilter:  filter,
		threshold:    threshold,
		inputW:       inputW,
		inputH:       inputH,
		numAnchors:   numAnchors,
	}, nil
}

// Detect runs the model on img and returns decoded, NMS-filtered detections
// in the original image's pixel coordinates.
func (d *YOLODetector) Detect(img image.Image) ([]models.Detection, error) {
	bounds := img.Bounds()
	origW := bounds.Dx()
	origH := bounds.Dy()

	input := imageToFloat32CHW(img, d.inputW, d.inputH,
		[3]float32{0, 0, 0}, [3]float32{255, 255, 255})
	copy(d.inputTensor.GetData(), input)

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run %s detection: %w", d.kind, err)
	}

	detections := d.decode(origW, origH)
	return nms(detections, 0.45), nil
}

// decode reads the raw output tensor and keeps boxes whose best class score
// clears the threshold.
func (d *YOLODetector) decode(origW, origH int) []models.Detection {
	out := d.outputTensor.GetData()
	n := d.numAnchors
	nc := len(d.classes)

	scaleW := float32(origW) / float32(d.inputW)
	scaleH := float32(origH) / float32(d.inputH)

	var detections []models.Detection
	for a := 0; a < n; a++ {
		bestClass := -1
		bestScore := float32(0)
		for c := 0; c < nc; c++ {
			score := out[(4+c)*n+a]
			if score > bestScore {
				bestScore = score
				bestClass = c
			}
		}

		if bestScore < d.threshold || bestClass < 0 {
			continue
		}
		if d.classFilter != nil && !d.classFilter[bestClass] {
			continue
		}

		cx := out[0*n+a]
		cy := out[1*n+a]
		w := out[2*n+a]
		h := out[3*n+a]

		x1 := clampF((cx-w/2)*scaleW, 0, float32(origW))
		y1 := clampF((cy-h/2)*scaleH, 0, float32(origH))
		x2 := clampF((cx+w/2)*scaleW, 0, float32(origW))
		y2 := clampF((cy+h/2)*scaleH, 0, float32(origH))

		detections = append(detections, models.Detection{
			Kind:       d.kind,
			BBox:       [4]float32{x1, y1, x2, y2},
			Confidence: bestScore,
			Label:      d.classes[bestClass],
		})
	}

	return detections
}

func (d *YOLODetector) Close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.inputTensor != nil {
		d.inputTensor.Destroy()
	}
	if d.outputTensor != nil {
		d.outputTensor.Destroy()
	}
}
