package gpmf

import (
	"time"
)

type Device struct {
	ID   string
	Name string
}

// Find returns the first node with key or nil.
func Find(nodes []*Node, key string) *Node {
	for _, node := range nodes {
		if node.Key == key {
			return node
		}
	}
	return nil
}

// FindAll returns all nodes with key in stream order.
func FindAll(nodes []*Node, key string) (res []*Node) {
	for _, node := range nodes {
		if node.Key == key {
			res = append(res, node)
		}
	}
	return
}

// Devices lists DEVC containers in first-seen order.
func Devices(nodes []*Node) (devices []Device) {
	for _, devc := range FindAll(nodes, KeyDevice) {
		var device Device
		if node := Find(devc.Children, KeyDeviceID); node != nil {
			device.ID = node.Value.String()
		}
		if node := Find(devc.Children, KeyDeviceName); node != nil {
			device.Name = node.Value.Text()
		}
		devices = append(devices, device)
	}
	return
}

// DeviceStreams returns the STRM containers of every device with id,
// each flattened to a key-value view.
func DeviceStreams(nodes []*Node, id string) (streams []*Stream) {
	for _, devc := range FindAll(nodes, KeyDevice) {
		node := Find(devc.Children, KeyDeviceID)
		if node == nil || node.Value.String() != id {
			continue
		}
		for _, strm := range FindAll(devc.Children, KeyStream) {
			streams = append(streams, NewStream(strm.Children))
		}
	}
	return
}

// FindStream returns the first stream that carries key.
func FindStream(streams []*Stream, key string) *Stream {
	for _, stream := range streams {
		if stream != nil && stream.Has(key) {
			return stream
		}
	}
	return nil
}

// Stream is the flattened view of one STRM container. Later duplicate keys
// override earlier ones. MeasureKey names the element holding the samples.
type Stream struct {
	MeasureKey string

	nodes map[string]*Node
	order []string
}

func NewStream(children []*Node) *Stream {
	s := &Stream{nodes: make(map[string]*Node, len(children))}
	for _, node := range children {
		if _, ok := s.nodes[node.Key]; !ok {
			s.order = append(s.order, node.Key)
		}
		s.nodes[node.Key] = node
	}
	return s
}

// WithMeasure returns a shallow copy of the stream with MeasureKey set.
func (s *Stream) WithMeasure(key string) *Stream {
	if s == nil {
		return nil
	}
	clone := *s
	clone.MeasureKey = key
	return &clone
}

func (s *Stream) Keys() []string {
	return s.order
}

func (s *Stream) Has(key string) bool {
	_, ok := s.nodes[key]
	return ok
}

func (s *Stream) Node(key string) *Node {
	return s.nodes[key]
}

func (s *Stream) Value(key string) (Value, bool) {
	if node, ok := s.nodes[key]; ok && node.Err == nil {
		return node.Value, true
	}
	return Value{}, false
}

func (s *Stream) Float(key string) (float64, bool) {
	if v, ok := s.Value(key); ok {
		return v.Float()
	}
	return 0, false
}

func (s *Stream) Floats(key string) []float64 {
	v, _ := s.Value(key)
	return v.Floats()
}

func (s *Stream) Samples(key string) [][]float64 {
	v, _ := s.Value(key)
	return v.Samples
}

func (s *Stream) Time(key string) (time.Time, bool) {
	if v, ok := s.Value(key); ok && v.Kind == KindTime {
		return v.Time, true
	}
	return time.Time{}, false
}

func (s *Stream) Text(key string) string {
	v, _ := s.Value(key)
	return v.Text()
}

// Measures returns the samples of MeasureKey divided by the stream SCAL.
// A stream without MeasureKey has no measures.
func (s *Stream) Measures() [][]float64 {
	if s == nil || s.MeasureKey == "" {
		return nil
	}
	samples := s.Samples(s.MeasureKey)
	if len(samples) == 0 {
		return nil
	}
	return Rescale(samples, s.Floats(KeyScale))
}
