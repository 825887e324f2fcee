package ai

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// COCOLabels are the 80 class names of models trained on COCO, indexed from 0.
var COCOLabels = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear", "hair drier",
	"toothbrush",
}

// ssdCOCOIDs maps the 91-slot class ids emitted by TensorFlow SSD graphs to
// the 80 contiguous COCO labels.
var ssdCOCOIDs = []int{
	1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25,
	27, 28, 31, 32, 33, 34, 35, 36, 37, 38, 39, 40, 41, 42, 43, 44, 46, 47, 48, 49, 50, 51,
	52, 53, 54, 55, 56, 57, 58, 59, 60, 61, 62, 63, 64, 65, 67, 70, 72, 73, 74, 75, 76, 77,
	78, 79, 80, 81, 82, 84, 85, 86, 87, 88, 89, 90,
}

// LoadLabels reads class names from a YAML file. Both a plain sequence and a
// dataset file with a "names" key (sequence or id->name map) are accepted.
// An empty path returns COCOLabels.
func LoadLabels(path string) ([]string, error) {
	if path == "" {
		return COCOLabels, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	labels, err := parseLabels(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse labels %s: %w", path, err)
	}
	return labels, nil
}

func parseLabels(data []byte) ([]string, error) {
	var list []string
	if err := yaml.Unmarshal(data, &list); err == nil && len(list) > 0 {
		return list, nil
	}

	var dataset struct {
		Names yaml.Node `yaml:"names"`
	}
	if err := yaml.Unmarshal(data, &dataset); err != nil {
		return nil, err
	}

	switch dataset.Names.Kind {
	case yaml.SequenceNode:
		if err := dataset.Names.Decode(&list); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var byID map[int]string
		if err := dataset.Names.Decode(&byID); err != nil {
			return nil, err
		}
		list = labelsFromMap(byID)
	}

	if len(list) == 0 {
		return nil, errors.New("no class names found")
	}
	return list, nil
}

func labelsFromMap(byID map[int]string) []string {
	ids := make([]int, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	if len(ids) == 0 || ids[0] < 0 {
		return nil
	}

	list := make([]string, ids[len(ids)-1]+1)
	for _, id := range ids {
		list[id] = byID[id]
	}
	for i, name := range list {
		if name == "" {
			list[i] = fmt.Sprintf("class%d", i)
		}
	}
	return list
}

// LabelFor returns the name of a zero-based class id.
func LabelFor(labels []string, classID int) string {
	if classID >= 0 && classID < len(labels) {
		return labels[classID]
	}
	return fmt.Sprintf("class%d", classID)
}

// SSDClassIndex converts a TensorFlow SSD class id (1-based, 91 slots) to the
// zero-based COCO index, or -1 when the slot is unused.
func SSDClassIndex(ssdID int) int {
	for i, id := range ssdCOCOIDs {
		if id == ssdID {
			return i
		}
	}
	return -1
}
