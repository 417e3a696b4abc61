package visualiser

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/airwrite/internal/stroke"
)

// Wire layout of a snapshot:
//
//	{"revision": 12, "segments": [{"kind": "drawn", "x": 1, "y": 2}, {"kind": "break"}]}
//
// Numbers travel as protobuf doubles, so revisions above 2^53 lose precision.
const (
	fieldRevision = "revision"
	fieldSegments = "segments"
	fieldKind     = "kind"
	fieldX        = "x"
	fieldY        = "y"

	kindDrawn = "drawn"
	kindBreak = "break"
)

// SnapshotToStruct encodes snap for the Watch stream.
func SnapshotToStruct(snap stroke.Snapshot) (*structpb.Struct, error) {
	segs := make([]interface{}, len(snap.Segments))
	for i, s := range snap.Segments {
		if s.IsBreak() {
			segs[i] = map[string]interface{}{fieldKind: kindBreak}
			continue
		}
		segs[i] = map[string]interface{}{fieldKind: kindDrawn, fieldX: s.Point.X, fieldY: s.Point.Y}
	}
	st, err := structpb.NewStruct(map[string]interface{}{
		fieldRevision: float64(snap.Revision),
		fieldSegments: segs,
	})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return st, nil
}

// SnapshotFromStruct decodes a Watch stream message.
func SnapshotFromStruct(st *structpb.Struct) (stroke.Snapshot, error) {
	var snap stroke.Snapshot
	if st == nil {
		return snap, fmt.Errorf("decode snapshot: nil message")
	}
	fields := st.GetFields()
	rev, ok := fields[fieldRevision].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return snap, fmt.Errorf("decode snapshot: missing %q", fieldRevision)
	}
	snap.Revision = uint64(rev.NumberValue)

	list := fields[fieldSegments].GetListValue()
	if list == nil {
		return snap, fmt.Errorf("decode snapshot: missing %q", fieldSegments)
	}
	snap.Segments = make([]stroke.Segment, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		seg := v.GetStructValue().GetFields()
		switch kind := seg[fieldKind].GetStringValue(); kind {
		case kindBreak:
			snap.Segments = append(snap.Segments, stroke.Break())
		case kindDrawn:
			snap.Segments = append(snap.Segments, stroke.Drawn(stroke.Point{
				X: seg[fieldX].GetNumberValue(),
				Y: seg[fieldY].GetNumberValue(),
			}))
		default:
			return snap, fmt.Errorf("decode snapshot: segment %d has kind %q", i, kind)
		}
	}
	return snap, nil
}
