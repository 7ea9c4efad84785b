package detect

import (
	"fmt"
	"image"
	"math"

	ort "github.com/yalue/onnxruntime_go"
)

// ViolenceClassifier scores a rolling clip of sampled frames with a 3D CNN
// action model. Input layout is [1, 3, clipLen, H, W]; the single output is
// the violence logit, squashed to a probability.
type ViolenceClassifier struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	clipLen      int
	inputW       int
	inputH       int
	frames       [][]float32 // ring of preprocessed frames, oldest first
}

const violenceInputSize = 112

// NewViolenceClassifier loads the clip-level action model.
func NewViolenceClassifier(modelPath string, clipLen int, opts *ort.SessionOptions) (*ViolenceClassifier, error) {
	if clipLen <= 0 {
		clipLen = 16
	}
	w, h := violenceInputSize, violenceInputSize

	inputShape := ort.NewShape(1, 3, int64(clipLen), int64(h), int64(w))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create clip input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create clip output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"},
		[]string{"output"},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create violence session: %w", err)
	}

	return &ViolenceClassifier{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		clipLen:      clipLen,
		inputW:       w,
		inputH:       h,
	}, nil
}

// Push appends the next sampled frame to the clip ring, dropping the oldest
// once the ring is full.
func (v *ViolenceClassifier) Push(img image.Image) {
	data := imageToFloat32CHW(img, v.inputW, v.inputH,
		[3]float32{127.5, 127.5, 127.5}, [3]float32{127.5, 127.5, 127.5})
	v.frames = append(v.frames, data)
	if len(v.frames) > v.clipLen {
		v.frames = v.frames[1:]
	}
}

// Score runs the model over the current clip. Returns 0 until the ring has
// filled once.
func (v *ViolenceClassifier) Score() (float32, error) {
	if len(v.frames) < v.clipLen {
		return 0, nil
	}

	// Repack per-frame CHW slices into the [1,3,T,H,W] input tensor.
	input := v.inputTensor.GetData()
	plane := v.inputW * v.inputH
	for t, frame := range v.frames {
		for c := 0; c < 3; c++ {
			dst := input[c*v.clipLen*plane+t*plane:]
			copy(dst[:plane], frame[c*plane:(c+1)*plane])
		}
	}

	if err := v.session.Run(); err != nil {
		return 0, fmt.Errorf("run violence classification: %w", err)
	}

	logit := v.outputTensor.GetData()[0]
	prob := 1.0 / (1.0 + math.Exp(-float64(logit)))
	return float32(prob), nil
}

func (v *ViolenceClassifier) Close() {
	if v.session != nil {
		v.session.Destroy()
	}
	if v.inputTensor != nil {
		v.inputTensor.Destroy()
	}
	if v.outputTensor != nil {
		v.outputTensor.Destroy()
	}
}
