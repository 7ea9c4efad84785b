package detect

import (
	"testing"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/models"
)

func box(x1, y1, x2, y2, conf float32) models.Detection {
	return models.Detection{Kind: models.KindPerson, BBox: [4]float32{x1, y1, x2, y2}, Confidence: conf}
}

func TestNMSSuppressesOverlaps(t *testing.T) {
	dets := []models.Detection{
		box(0, 0, 100, 100, 0.7),
		box(5, 5, 105, 105, 0.9), // heavy overlap, higher confidence
		box(200, 200, 300, 300, 0.8),
	}

	kept := nms(dets, 0.45)
	if len(kept) != 2 {
		t.Fatalf("kept %d boxes, want 2", len(kept))
	}
	// Highest-confidence overlap survives.
	if kept[0].Confidence != 0.9 {
		t.Errorf("surviving overlap confidence = %.2f, want 0.9", kept[0].Confidence)
	}
}

func TestNMSKeepsDisjointBoxes(t *testing.T) {
	dets := []models.Detection{
		box(0, 0, 50, 50, 0.6),
		box(60, 60, 110, 110, 0.8),
		box(200, 0, 250, 50, 0.7),
	}
	if kept := nms(dets, 0.45); len(kept) != 3 {
		t.Fatalf("kept %d disjoint boxes, want 3", len(kept))
	}
}

func TestNMSEmptyInput(t *testing.T) {
	if kept := nms(nil, 0.45); len(kept) != 0 {
		t.Fatal("nms invented detections from nothing")
	}
}

func TestIOU(t *testing.T) {
	cases := []struct {
		name string
		a, b [4]float32
		want float32
	}{
		{"identical", [4]float32{0, 0, 10, 10}, [4]float32{0, 0, 10, 10}, 1},
		{"disjoint", [4]float32{0, 0, 10, 10}, [4]float32{20, 20, 30, 30}, 0},
		{"half overlap", [4]float32{0, 0, 10, 10}, [4]float32{5, 0, 15, 10}, 1.0 / 3.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := iou(tc.a, tc.b)
			if diff := got - tc.want; diff > 1e-5 || diff < -1e-5 {
				t.Errorf("iou = %f, want %f", got, tc.want)
			}
		})
	}
}

func TestClampF(t *testing.T) {
	if got := clampF(-1, 0, 640); got != 0 {
		t.Errorf("clamp below = %f", got)
	}
	if got := clampF(700, 0, 640); got != 640 {
		t.Errorf("clamp above = %f", got)
	}
	if got := clampF(320, 0, 640); got != 320 {
		t.Errorf("clamp within = %f", got)
	}
}
