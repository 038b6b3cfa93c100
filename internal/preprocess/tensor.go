package preprocess

import "fmt"

// Tensor is a dense float32 array in row-major order.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// NewTensor allocates a zeroed tensor of the given shape.
func NewTensor(shape ...int64) *Tensor {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	s := make([]int64, len(shape))
	copy(s, shape)
	return &Tensor{Shape: s, Data: make([]float32, n)}
}

// Len returns the element count implied by Shape.
func (t *Tensor) Len() int {
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return int(n)
}

// Validate checks that Data matches Shape.
func (t *Tensor) Validate() error {
	if t == nil {
		return fmt.Errorf("nil tensor")
	}
	if len(t.Shape) == 0 {
		return fmt.Errorf("tensor has no shape")
	}
	for _, d := range t.Shape {
		if d <= 0 {
			return fmt.Errorf("invalid tensor shape %v", t.Shape)
		}
	}
	if t.Len() != len(t.Data) {
		return fmt.Errorf("tensor shape %v needs %d values, has %d", t.Shape, t.Len(), len(t.Data))
	}
	return nil
}

// ToNCHW converts an NHWC tensor to channels-first layout.
func (t *Tensor) ToNCHW() (*Tensor, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if len(t.Shape) != 4 {
		return nil, fmt.Errorf("expected 4D NHWC tensor, got %dD", len(t.Shape))
	}
	n, h, w, c := t.Shape[0], t.Shape[1], t.Shape[2], t.Shape[3]
	out := NewTensor(n, c, h, w)
	for b := int64(0); b < n; b++ {
		for y := int64(0); y < h; y++ {
			for x := int64(0); x < w; x++ {
				for ch := int64(0); ch < c; ch++ {
					src := ((b*h+y)*w+x)*c + ch
					dst := ((b*c+ch)*h+y)*w + x
					out.Data[dst] = t.Data[src]
				}
			}
		}
	}
	return out, nil
}
