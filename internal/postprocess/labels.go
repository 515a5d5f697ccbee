package postprocess

import "fmt"

// GenericLabels returns n placeholder labels ("class_0" .. "class_{n-1}").
// The original ImageNet synset label files referenced by the component
// this package is grounded on were not part of the retrieved sources;
// callers with the real label text should load it (e.g. via
// internal/staticmodel) and pass it to Classify directly instead of
// using this helper.
func GenericLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("class_%d", i)
	}
	return labels
}
