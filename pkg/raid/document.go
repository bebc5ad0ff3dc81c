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
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// VGDocument is the serializable form of a volume group.
type VGDocument struct {
	Name       string       `json:"name"`
	ID         uuid.UUID    `json:"id"`
	ExtentSize uint32       `json:"extent_size"`
	Seqno      uint32       `json:"seqno"`
	PVs        []PVDocument `json:"pvs"`
	LVs        []LVDocument `json:"lvs"`
}

type PVDocument struct {
	Name    string `json:"name"`
	PECount uint32 `json:"pe_count"`
	Missing bool   `json:"missing,omitempty"`
}

type LVDocument struct {
	ID       LVID              `json:"id"`
	UUID     uuid.UUID         `json:"uuid"`
	Name     NameDocument      `json:"name"`
	Status   []string          `json:"status"`
	LECount  uint32            `json:"le_count"`
	Parent   LVID              `json:"parent,omitempty"`
	Segments []SegmentDocument `json:"segments"`
}

type NameDocument struct {
	Base      string `json:"base"`
	Role      string `json:"role,omitempty"`
	Index     int    `json:"index"`
	Extracted bool   `json:"extracted,omitempty"`
}

type SegmentDocument struct {
	Type       string         `json:"type"`
	LE         uint32         `json:"le"`
	Len        uint32         `json:"len"`
	AreaLen    uint32         `json:"area_len"`
	StripeSize uint32         `json:"stripe_size,omitempty"`
	RegionSize uint32         `json:"region_size,omitempty"`
	DataCopies uint32         `json:"data_copies,omitempty"`
	ReshapeLen uint32         `json:"reshape_len,omitempty"`
	DataOffset uint64         `json:"data_offset,omitempty"`
	Areas      []AreaDocument `json:"areas"`
	MetaAreas  []AreaDocument `json:"meta_areas,omitempty"`
	Log        LVID           `json:"log,omitempty"`
}

type AreaDocument struct {
	LV LVID   `json:"lv,omitempty"`
	PV string `json:"pv,omitempty"`
	PE uint32 `json:"pe,omitempty"`
}

var roleNames = map[Role]string{
	RoleRImage:  "rimage",
	RoleRMeta:   "rmeta",
	RoleMImage:  "mimage",
	RoleMLog:    "mlog",
	RoleRDImage: "rdimage",
	RoleRDMeta:  "rdmeta",
	RoleDSrc:    "dsrc",
	RoleDDst:    "ddst",
}

// Document returns a snapshot of vg detached from the live model.
func (vg *VolumeGroup) Document() *VGDocument {
	doc := &VGDocument{
		Name:       vg.Name,
		ID:         vg.ID,
		ExtentSize: vg.ExtentSize,
		Seqno:      vg.Seqno,
	}
	for _, pv := range vg.PVs {
		doc.PVs = append(doc.PVs, PVDocument{Name: pv.Name, PECount: pv.PECount, Missing: pv.Missing})
	}
	for _, lv := range vg.LVs() {
		ld := LVDocument{
			ID:      lv.ID,
			UUID:    lv.UUID,
			Name:    NameDocument{Base: lv.Name.Base, Role: roleNames[lv.Name.Role], Index: lv.Name.Index, Extracted: lv.Name.Extracted},
			LECount: lv.LECount,
			Parent:  lv.Parent,
		}
		for _, n := range statusFlagNames {
			if lv.Status&n.flag != 0 {
				ld.Status = append(ld.Status, n.name)
			}
		}
		for _, seg := range lv.Segments {
			sd := SegmentDocument{
				Type:       seg.Type.Name,
				LE:         seg.LE,
				Len:        seg.Len,
				AreaLen:    seg.AreaLen,
				StripeSize: seg.StripeSize,
				RegionSize: seg.RegionSize,
				DataCopies: seg.DataCopies,
				ReshapeLen: seg.ReshapeLen,
				DataOffset: seg.DataOffset,
				Areas:      areaDocuments(seg.Areas),
				MetaAreas:  areaDocuments(seg.MetaAreas),
				Log:        seg.Log,
			}
			ld.Segments = append(ld.Segments, sd)
		}
		doc.LVs = append(doc.LVs, ld)
	}
	return doc
}

func areaDocuments(areas []Area) []AreaDocument {
	if areas == nil {
		return nil
	}
	out := make([]AreaDocument, len(areas))
	for i, a := range areas {
		switch a.Kind {
		case AreaLV:
			out[i] = AreaDocument{LV: a.LV, PE: a.PE}
		case AreaPV:
			out[i] = AreaDocument{PV: a.PV, PE: a.PE}
		}
	}
	return out
}

func areasFromDocuments(docs []AreaDocument) []Area {
	if docs == nil {
		return nil
	}
	out := make([]Area, len(docs))
	for i, d := range docs {
		switch {
		case d.LV != NoLV:
			out[i] = Area{Kind: AreaLV, LV: d.LV, PE: d.PE}
		case d.PV != "":
			out[i] = Area{Kind: AreaPV, PV: d.PV, PE: d.PE}
		}
	}
	return out
}

// VolumeGroupFromDocument rebuilds the live model of doc.
func VolumeGroupFromDocument(doc *VGDocument) (*VolumeGroup, error) {
	vg := &VolumeGroup{
		Name:       doc.Name,
		ID:         doc.ID,
		ExtentSize: doc.ExtentSize,
		Seqno:      doc.Seqno,
	}
	if vg.ExtentSize == 0 {
		return nil, status.Errorf(codes.InvalidArgument, "volume group %s has no extent size", doc.Name)
	}
	for _, pd := range doc.PVs {
		vg.AddPV(pd.Name, pd.PECount).Missing = pd.Missing
	}
	flags := map[string]StatusFlag{}
	for _, n := range statusFlagNames {
		flags[n.name] = n.flag
	}
	roles := map[string]Role{"": RoleNone}
	for r, n := range roleNames {
		roles[n] = r
	}

	for _, ld := range doc.LVs {
		if ld.ID <= NoLV {
			return nil, status.Errorf(codes.InvalidArgument, "invalid logical volume id %d", ld.ID)
		}
		for int(ld.ID) > len(vg.lvs) {
			vg.lvs = append(vg.lvs, nil)
		}
		if vg.lvs[ld.ID-1] != nil {
			return nil, status.Errorf(codes.InvalidArgument, "duplicate logical volume id %d", ld.ID)
		}
		role, ok := roles[ld.Name.Role]
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "unknown role %q of %s", ld.Name.Role, ld.Name.Base)
		}
		lv := &LogicalVolume{
			ID:      ld.ID,
			UUID:    ld.UUID,
			Name:    Name{Base: ld.Name.Base, Role: role, Index: ld.Name.Index, Extracted: ld.Name.Extracted},
			LECount: ld.LECount,
			Parent:  ld.Parent,
			vg:      vg,
		}
		for _, s := range ld.Status {
			f, ok := flags[s]
			if !ok {
				return nil, status.Errorf(codes.InvalidArgument, "unknown status flag %q of %s", s, lv.Name)
			}
			lv.Status |= f
		}
		for _, sd := range ld.Segments {
			t, err := LookupSegmentType(sd.Type)
			if err != nil {
				return nil, err
			}
			lv.appendSegment(&Segment{
				Type:       t,
				LE:         sd.LE,
				Len:        sd.Len,
				AreaLen:    sd.AreaLen,
				StripeSize: sd.StripeSize,
				RegionSize: sd.RegionSize,
				DataCopies: sd.DataCopies,
				ReshapeLen: sd.ReshapeLen,
				DataOffset: sd.DataOffset,
				Areas:      areasFromDocuments(sd.Areas),
				MetaAreas:  areasFromDocuments(sd.MetaAreas),
				Log:        sd.Log,
			})
		}
		vg.lvs[ld.ID-1] = lv
	}
	if err := vg.check(); err != nil {
		return nil, err
	}
	return vg, nil
}

// check verifies that every reference of the arena resolves.
func (vg *VolumeGroup) check() error {
	for _, lv := range vg.LVs() {
		if lv.Parent != NoLV && vg.LV(lv.Parent) == nil {
			return status.Errorf(codes.InvalidArgument, "%s references missing parent %d", lv, lv.Parent)
		}
		for _, seg := range lv.Segments {
			for _, areas := range [][]Area{seg.Areas, seg.MetaAreas} {
				for _, a := range areas {
					switch a.Kind {
					case AreaLV:
						if vg.LV(a.LV) == nil {
							return status.Errorf(codes.InvalidArgument, "%s maps missing volume %d", lv, a.LV)
						}
					case AreaPV:
						if vg.PV(a.PV) == nil {
							return status.Errorf(codes.InvalidArgument, "%s maps missing device %s", lv, a.PV)
						}
					}
				}
			}
			if seg.Log != NoLV && vg.LV(seg.Log) == nil {
				return status.Errorf(codes.InvalidArgument, "%s references missing log %d", lv, seg.Log)
			}
		}
	}
	return nil
}
