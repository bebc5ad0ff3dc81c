// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package raid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LVID is the handle of a logical volume inside its volume group. The zero
// value references no volume.
type LVID int

// NoLV marks an unset logical volume reference.
const NoLV LVID = 0

// StatusFlag is the status bitmask of a logical volume.
type StatusFlag uint64

const (
	Visible StatusFlag = 1 << iota
	Read
	Write
	Raid
	RaidImage
	RaidMeta
	MirrorTop
	Mirrored
	MirrorImage
	MirrorLog
	Rebuild
	ReshapeDeltaPlus
	ReshapeDeltaMinus
	Partial
	NotSynced
	Temporary
)

var statusFlagNames = []struct {
	flag StatusFlag
	name string
}{
	{Visible, "VISIBLE"},
	{Read, "READ"},
	{Write, "WRITE"},
	{Raid, "RAID"},
	{RaidImage, "RAID_IMAGE"},
	{RaidMeta, "RAID_META"},
	{MirrorTop, "MIRROR"},
	{Mirrored, "MIRRORED"},
	{MirrorImage, "MIRROR_IMAGE"},
	{MirrorLog, "MIRROR_LOG"},
	{Rebuild, "REBUILD"},
	{ReshapeDeltaPlus, "RESHAPE_DELTA_DISKS_PLUS"},
	{ReshapeDeltaMinus, "RESHAPE_DELTA_DISKS_MINUS"},
	{Partial, "PARTIAL"},
	{NotSynced, "NOTSYNCED"},
	{Temporary, "TEMPORARY"},
}

func (f StatusFlag) String() string {
	s := ""
	for _, n := range statusFlagNames {
		if f&n.flag == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += n.name
	}
	return s
}

// PhysicalVolume is a storage device contributing extents to a volume group.
type PhysicalVolume struct {
	Name    string
	PECount uint32
	Missing bool
	// NoAlloc excludes the device from allocation for the running operation.
	NoAlloc bool
}

// VolumeGroup owns physical volumes and the arena of logical volumes.
type VolumeGroup struct {
	Name       string
	ID         uuid.UUID
	ExtentSize uint32 // sectors
	PVs        []*PhysicalVolume
	Seqno      uint32

	lvs      []*LogicalVolume
	archived bool
}

func NewVolumeGroup(name string, extentSize uint32) *VolumeGroup {
	return &VolumeGroup{
		Name:       name,
		ID:         uuid.New(),
		ExtentSize: extentSize,
	}
}

func (vg *VolumeGroup) AddPV(name string, peCount uint32) *PhysicalVolume {
	pv := &PhysicalVolume{Name: name, PECount: peCount}
	vg.PVs = append(vg.PVs, pv)
	return pv
}

func (vg *VolumeGroup) PV(name string) *PhysicalVolume {
	for _, pv := range vg.PVs {
		if pv.Name == name {
			return pv
		}
	}
	return nil
}

// CreateLV adds an empty logical volume to the arena.
func (vg *VolumeGroup) CreateLV(name Name, flags StatusFlag) (*LogicalVolume, error) {
	if vg.FindLV(name.String()) != nil {
		return nil, status.Errorf(codes.AlreadyExists, "Logical volume %s already exists in volume group %s.", name, vg.Name)
	}
	lv := &LogicalVolume{
		ID:     LVID(len(vg.lvs) + 1),
		UUID:   uuid.New(),
		Name:   name,
		Status: flags,
		vg:     vg,
	}
	vg.lvs = append(vg.lvs, lv)
	return lv, nil
}

// LV returns the logical volume with the given handle, or nil.
func (vg *VolumeGroup) LV(id LVID) *LogicalVolume {
	if id <= NoLV || int(id) > len(vg.lvs) {
		return nil
	}
	return vg.lvs[id-1]
}

// FindLV looks a logical volume up by display name.
func (vg *VolumeGroup) FindLV(name string) *LogicalVolume {
	for _, lv := range vg.lvs {
		if lv != nil && lv.Name.String() == name {
			return lv
		}
	}
	return nil
}

// LVs lists the live logical volumes in handle order.
func (vg *VolumeGroup) LVs() []*LogicalVolume {
	lvs := make([]*LogicalVolume, 0, len(vg.lvs))
	for _, lv := range vg.lvs {
		if lv != nil {
			lvs = append(lvs, lv)
		}
	}
	return lvs
}

// UsedExtents returns the number of extents of the named device mapped by
// any logical volume.
func (vg *VolumeGroup) UsedExtents(pv string) uint32 {
	var n uint32
	for _, lv := range vg.lvs {
		if lv == nil {
			continue
		}
		for _, seg := range lv.Segments {
			for _, a := range seg.Areas {
				if a.Kind == AreaPV && a.PV == pv {
					n += seg.AreaLen
				}
			}
		}
	}
	return n
}

// FreeExtents returns the unmapped extents of the named device.
func (vg *VolumeGroup) FreeExtents(pv string) uint32 {
	p := vg.PV(pv)
	if p == nil {
		return 0
	}
	used := vg.UsedExtents(pv)
	if used >= p.PECount {
		return 0
	}
	return p.PECount - used
}

// RemoveLV drops lv from the arena, releasing the extents it maps.
func (vg *VolumeGroup) RemoveLV(lv *LogicalVolume) {
	lv.releaseSubLVs()
	lv.Segments = nil
	vg.lvs[lv.ID-1] = nil
}

// LogicalVolume is a virtual block device built of segments.
type LogicalVolume struct {
	ID       LVID
	UUID     uuid.UUID
	Name     Name
	Status   StatusFlag
	LECount  uint32
	Segments []*Segment
	// Parent is the logical volume whose segment maps this one.
	Parent LVID

	vg *VolumeGroup
}

func (lv *LogicalVolume) VG() *VolumeGroup {
	return lv.vg
}

// String returns the "vg/lv" display name.
func (lv *LogicalVolume) String() string {
	return fmt.Sprintf("%s/%s", lv.vg.Name, lv.Name)
}

// DMName returns the device-mapper name of lv, doubling the dashes of
// the volume group and volume names.
func (lv *LogicalVolume) DMName() string {
	return strings.ReplaceAll(lv.vg.Name, "-", "--") + "-" + strings.ReplaceAll(lv.Name.String(), "-", "--")
}

func (lv *LogicalVolume) FirstSegment() *Segment {
	if len(lv.Segments) == 0 {
		return nil
	}
	return lv.Segments[0]
}

func (lv *LogicalVolume) Is(f StatusFlag) bool {
	return lv.Status&f != 0
}

func (lv *LogicalVolume) setVisible(visible bool) {
	if visible {
		lv.Status |= Visible
	} else {
		lv.Status &^= Visible
	}
}

func (lv *LogicalVolume) IsRaid() bool {
	return lv.Is(Raid)
}

// IsRaidSub reports raid image and metadata components.
func (lv *LogicalVolume) IsRaidSub() bool {
	return lv.Is(RaidImage | RaidMeta)
}

// IsVirtual reports whether lv maps no physical storage.
func (lv *LogicalVolume) IsVirtual() bool {
	seg := lv.FirstSegment()
	return seg != nil && seg.Type.IsError()
}

// IsLinear reports a single striped segment of one area.
func (lv *LogicalVolume) IsLinear() bool {
	seg := lv.FirstSegment()
	return seg != nil && seg.Type.IsStriped() && seg.AreaCount() == 1
}

func (lv *LogicalVolume) ParentLV() *LogicalVolume {
	return lv.vg.LV(lv.Parent)
}

// Segment is a contiguous extent range of a logical volume.
type Segment struct {
	Type       *SegmentType
	LE         uint32
	Len        uint32
	AreaLen    uint32
	StripeSize uint32 // sectors
	RegionSize uint32 // sectors
	DataCopies uint32
	ReshapeLen uint32
	DataOffset uint64 // sectors
	Areas      []Area
	MetaAreas  []Area
	Log        LVID

	lv *LogicalVolume
}

type AreaKind int

const (
	AreaUnassigned AreaKind = iota
	AreaLV
	AreaPV
)

// Area is one slot of a segment. For AreaLV slots PE holds the starting
// extent inside the sub volume.
type Area struct {
	Kind AreaKind
	LV   LVID
	PV   string
	PE   uint32
}

var unassigned = Area{}

func lvArea(id LVID) Area {
	return Area{Kind: AreaLV, LV: id}
}

func (s *Segment) LV() *LogicalVolume {
	return s.lv
}

func (s *Segment) AreaCount() uint32 {
	return uint32(len(s.Areas))
}

// DataImageCount returns the number of images holding data stripes.
func (s *Segment) DataImageCount() uint32 {
	return s.AreaCount() - s.Type.ParityDevs
}

func (s *Segment) DataLV(i uint32) *LogicalVolume {
	if int(i) >= len(s.Areas) || s.Areas[i].Kind != AreaLV {
		return nil
	}
	return s.lv.vg.LV(s.Areas[i].LV)
}

func (s *Segment) MetaLV(i uint32) *LogicalVolume {
	if int(i) >= len(s.MetaAreas) || s.MetaAreas[i].Kind != AreaLV {
		return nil
	}
	return s.lv.vg.LV(s.MetaAreas[i].LV)
}

func (s *Segment) LogLV() *LogicalVolume {
	return s.lv.vg.LV(s.Log)
}

func (s *Segment) setDataLV(i uint32, lv *LogicalVolume, flags StatusFlag) {
	s.Areas[i] = lvArea(lv.ID)
	lv.Status |= flags
	lv.Parent = s.lv.ID
}

func (s *Segment) setMetaLV(i uint32, lv *LogicalVolume, flags StatusFlag) {
	s.MetaAreas[i] = lvArea(lv.ID)
	lv.Status |= flags
	lv.Parent = s.lv.ID
}

// appendSegment links seg as the last segment of lv.
func (lv *LogicalVolume) appendSegment(seg *Segment) {
	seg.lv = lv
	lv.Segments = append(lv.Segments, seg)
}

// setSegments replaces the segment list, adopting every entry.
func (lv *LogicalVolume) setSegments(segs []*Segment) {
	lv.Segments = segs
	for _, seg := range segs {
		seg.lv = lv
	}
}

func (lv *LogicalVolume) findSegment(le uint32) *Segment {
	for _, seg := range lv.Segments {
		if le >= seg.LE && le < seg.LE+seg.Len {
			return seg
		}
	}
	return nil
}

func (lv *LogicalVolume) segmentIndex(le uint32) int {
	for i, seg := range lv.Segments {
		if le >= seg.LE && le < seg.LE+seg.Len {
			return i
		}
	}
	return -1
}

// splitSegment ensures a segment boundary at le.
func (lv *LogicalVolume) splitSegment(le uint32) error {
	i := lv.segmentIndex(le)
	if i < 0 {
		if le == lv.LECount {
			return nil
		}
		return internalErrorf("Segment with extent %d in LV %s not found", le, lv)
	}
	seg := lv.Segments[i]
	if seg.LE == le {
		return nil
	}
	offset := le - seg.LE
	ratio := seg.Len / seg.AreaLen
	if ratio == 0 || offset%ratio != 0 {
		return internalErrorf("Unable to split segment of %s at extent %d", lv, le)
	}
	areaOffset := offset / ratio
	tail := *seg
	tail.LE = le
	tail.Len = seg.Len - offset
	tail.AreaLen = seg.AreaLen - areaOffset
	tail.ReshapeLen = 0
	tail.Areas = make([]Area, len(seg.Areas))
	for s, a := range seg.Areas {
		if a.Kind != AreaUnassigned {
			a.PE += areaOffset
		}
		tail.Areas[s] = a
	}
	tail.MetaAreas = nil
	seg.Len = offset
	seg.AreaLen = areaOffset

	segs := make([]*Segment, 0, len(lv.Segments)+1)
	segs = append(segs, lv.Segments[:i+1]...)
	segs = append(segs, &tail)
	segs = append(segs, lv.Segments[i+1:]...)
	lv.setSegments(segs)
	return nil
}

func (lv *LogicalVolume) renumberSegments() {
	var le uint32
	for _, seg := range lv.Segments {
		seg.LE = le
		le += seg.Len
	}
}

// mergeSegments joins neighbouring segments mapping contiguous storage.
func (lv *LogicalVolume) mergeSegments() {
	if len(lv.Segments) < 2 {
		return
	}
	segs := []*Segment{lv.Segments[0]}
	for _, next := range lv.Segments[1:] {
		prev := segs[len(segs)-1]
		if !canMerge(prev, next) {
			segs = append(segs, next)
			continue
		}
		prev.Len += next.Len
		prev.AreaLen += next.AreaLen
	}
	lv.setSegments(segs)
}

func canMerge(a, b *Segment) bool {
	if a.Type != b.Type || !a.Type.IsStriped() || len(a.Areas) != len(b.Areas) ||
		a.StripeSize != b.StripeSize || b.ReshapeLen != 0 {
		return false
	}
	for s := range a.Areas {
		x, y := a.Areas[s], b.Areas[s]
		if x.Kind != AreaPV || y.Kind != AreaPV || x.PV != y.PV || x.PE+a.AreaLen != y.PE {
			return false
		}
	}
	return true
}

// extend appends linear segments mapping the given extents.
func (lv *LogicalVolume) extend(extents []Extent) {
	for _, e := range extents {
		lv.appendSegment(&Segment{
			Type:    Striped,
			LE:      lv.LECount,
			Len:     e.Len,
			AreaLen: e.Len,
			Areas:   []Area{{Kind: AreaPV, PV: e.PV, PE: e.PE}},
		})
		lv.LECount += e.Len
	}
	lv.mergeSegments()
}

// reduce drops extents from the end of lv.
func (lv *LogicalVolume) reduce(extents uint32) error {
	if extents > lv.LECount {
		return internalErrorf("Unable to reduce %s by %d extents", lv, extents)
	}
	newCount := lv.LECount - extents
	if err := lv.splitSegment(newCount); err != nil {
		return err
	}
	keep := lv.Segments[:0]
	for _, seg := range lv.Segments {
		if seg.LE < newCount {
			keep = append(keep, seg)
			continue
		}
		for s := range seg.Areas {
			if sub := seg.DataLV(uint32(s)); sub != nil {
				sub.Parent = NoLV
			}
		}
	}
	lv.Segments = keep
	lv.LECount = newCount
	return nil
}

func (lv *LogicalVolume) releaseSubLVs() {
	for _, seg := range lv.Segments {
		for s := range seg.Areas {
			if sub := seg.DataLV(uint32(s)); sub != nil && sub.Parent == lv.ID {
				sub.Parent = NoLV
			}
		}
		for s := range seg.MetaAreas {
			if sub := seg.MetaLV(uint32(s)); sub != nil && sub.Parent == lv.ID {
				sub.Parent = NoLV
			}
		}
		if log := seg.LogLV(); log != nil && log.Parent == lv.ID {
			log.Parent = NoLV
		}
	}
}

// replaceWithError maps the whole of lv to the error target.
func (lv *LogicalVolume) replaceWithError() {
	lv.releaseSubLVs()
	lv.Segments = nil
	lv.appendSegment(&Segment{
		Type:    ErrorTarget,
		Len:     lv.LECount,
		AreaLen: lv.LECount,
	})
}

// insertLayer moves the segments of lv to a new sub volume and maps lv
// onto it with a single segment of type t.
func (lv *LogicalVolume) insertLayer(name Name, flags StatusFlag, t *SegmentType) (*LogicalVolume, error) {
	layer, err := lv.vg.CreateLV(name, flags)
	if err != nil {
		return nil, err
	}
	layer.LECount = lv.LECount
	layer.setSegments(lv.Segments)
	for _, seg := range layer.Segments {
		reparent(seg, layer.ID)
	}
	lv.Segments = nil
	lv.appendSegment(&Segment{
		Type:    t,
		Len:     lv.LECount,
		AreaLen: lv.LECount,
		Areas:   []Area{unassigned},
	})
	lv.FirstSegment().setDataLV(0, layer, 0)
	return layer, nil
}

// removeLayer replaces the mapping of lv with the one of its sub volume.
// The emptied layer stays in the arena until it is removed.
func (lv *LogicalVolume) removeLayer(layer *LogicalVolume) {
	lv.releaseSubLVs()
	lv.setSegments(layer.Segments)
	for _, seg := range lv.Segments {
		reparent(seg, lv.ID)
	}
	lv.LECount = layer.LECount
	layer.Segments = nil
	layer.Parent = NoLV
}

func reparent(seg *Segment, id LVID) {
	for s := range seg.Areas {
		if sub := seg.DataLV(uint32(s)); sub != nil {
			sub.Parent = id
		}
	}
	for s := range seg.MetaAreas {
		if sub := seg.MetaLV(uint32(s)); sub != nil {
			sub.Parent = id
		}
	}
	if log := seg.LogLV(); log != nil {
		log.Parent = id
	}
}

// pvNames returns the physical volumes lv maps, recursing into sub volumes.
func (lv *LogicalVolume) pvNames() []string {
	var names []string
	seen := map[string]bool{}
	var walk func(*LogicalVolume)
	walk = func(l *LogicalVolume) {
		for _, seg := range l.Segments {
			for s, a := range seg.Areas {
				switch a.Kind {
				case AreaPV:
					if !seen[a.PV] {
						seen[a.PV] = true
						names = append(names, a.PV)
					}
				case AreaLV:
					walk(seg.DataLV(uint32(s)))
				}
			}
			for s := range seg.MetaAreas {
				if m := seg.MetaLV(uint32(s)); m != nil {
					walk(m)
				}
			}
			if log := seg.LogLV(); log != nil {
				walk(log)
			}
		}
	}
	walk(lv)
	return names
}

// onPVs reports whether lv maps any of the given physical volumes.
func (lv *LogicalVolume) onPVs(pvs []string) bool {
	for _, name := range lv.pvNames() {
		if slices.Contains(pvs, name) {
			return true
		}
	}
	return false
}

// subLVs lists every component volume below lv, depth first.
func (lv *LogicalVolume) subLVs() []*LogicalVolume {
	var out []*LogicalVolume
	for _, seg := range lv.Segments {
		for s := range seg.Areas {
			if sub := seg.DataLV(uint32(s)); sub != nil {
				out = append(out, sub)
				out = append(out, sub.subLVs()...)
			}
		}
		for s := range seg.MetaAreas {
			if sub := seg.MetaLV(uint32(s)); sub != nil {
				out = append(out, sub)
			}
		}
		if log := seg.LogLV(); log != nil {
			out = append(out, log)
		}
	}
	return out
}
