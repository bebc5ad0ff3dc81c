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
	"regexp"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Role is the part a component volume plays below its top-level volume.
type Role int

const (
	RoleNone Role = iota
	RoleRImage
	RoleRMeta
	RoleMImage
	RoleMLog
	RoleRDImage
	RoleRDMeta
	RoleDSrc
	RoleDDst
)

var roleSuffixes = map[Role]string{
	RoleRImage:  "_rimage_",
	RoleRMeta:   "_rmeta_",
	RoleMImage:  "_mimage_",
	RoleMLog:    "_mlog",
	RoleRDImage: "_rdimage_",
	RoleRDMeta:  "_rdmeta_",
	RoleDSrc:    "_dsrc_",
	RoleDDst:    "_ddst_",
}

func (r Role) indexed() bool {
	return r != RoleNone && r != RoleMLog
}

// Name is the structured name of a logical volume. The on-disk name is
// derived from it by String.
type Name struct {
	Base      string
	Role      Role
	Index     int
	Extracted bool
}

// PlainName returns the name of a top-level volume.
func PlainName(base string) Name {
	return Name{Base: base, Index: -1}
}

func componentName(base string, role Role, index int) Name {
	return Name{Base: base, Role: role, Index: index}
}

func (n Name) String() string {
	s := n.Base + roleSuffixes[n.Role]
	if n.Role.indexed() {
		s += fmt.Sprint(n.Index)
	}
	if n.Extracted {
		s += "_extracted"
	}
	return s
}

var nameRe = regexp.MustCompile(`^[A-Za-z0-9+_.][A-Za-z0-9+_.\-]*$`)

const maxNameLen = 127

// validName applies the character set and length rules of volume names.
func validName(s string) bool {
	return len(s) <= maxNameLen && s != "." && s != ".." && nameRe.MatchString(s)
}

// generateName returns the component name of lv for role with the lowest
// free index.
func generateName(vg *VolumeGroup, base string, role Role) (Name, error) {
	for i := 0; ; i++ {
		n := componentName(base, role, i)
		if !validName(n.String()) {
			return Name{}, status.Errorf(codes.InvalidArgument, "New logical volume name %q is not valid.", n)
		}
		if vg.FindLV(n.String()) == nil {
			return n, nil
		}
	}
}

// checkFreeName fails when the name is invalid or already taken.
func checkFreeName(vg *VolumeGroup, n Name) error {
	if !validName(n.String()) {
		return status.Errorf(codes.InvalidArgument, "New logical volume name %q is not valid.", n)
	}
	if vg.FindLV(n.String()) != nil {
		return status.Errorf(codes.AlreadyExists, "Logical volume %s already exists in volume group %s.", n, vg.Name)
	}
	return nil
}

// rename gives lv a new structured name, refusing collisions.
func rename(lv *LogicalVolume, n Name) error {
	if lv.Name == n {
		return nil
	}
	if other := lv.vg.FindLV(n.String()); other != nil && other != lv {
		return status.Errorf(codes.AlreadyExists, "Logical volume %s already exists in volume group %s.", n, lv.vg.Name)
	}
	lv.Name = n
	return nil
}
