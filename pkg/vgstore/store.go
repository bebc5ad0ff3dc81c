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

package vgstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aleofreddi/lvmraid/pkg/raid"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"k8s.io/klog"
)

const pendingSuffix = ".pending"

// FileStore keeps the metadata of one volume group in a json file. Write
// stages the next sequence number next to it, Commit renames the staged
// copy over the committed one.
type FileStore struct {
	path       string
	archiveDir string
	backupDir  string
}

// New returns a store for the metadata file at path. Empty archiveDir or
// backupDir disable archives and backups respectively.
func New(path, archiveDir, backupDir string) *FileStore {
	return &FileStore{path: path, archiveDir: archiveDir, backupDir: backupDir}
}

func (s *FileStore) Path() string {
	return s.path
}

// Load reads the committed metadata.
func (s *FileStore) Load() (*raid.VolumeGroup, error) {
	return Load(s.path)
}

// Load reads a volume group metadata file.
func Load(path string) (*raid.VolumeGroup, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, status.Errorf(codes.NotFound, "metadata file %s does not exist", path)
	}
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to read %s: %v", path, err)
	}
	var doc raid.VGDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "failed to parse %s: %v", path, err)
	}
	vg, err := raid.VolumeGroupFromDocument(&doc)
	if err != nil {
		return nil, err
	}
	klog.V(4).Infof("Loaded volume group %s seqno %d from %s", vg.Name, vg.Seqno, path)
	return vg, nil
}

func encode(doc *raid.VGDocument) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode volume group %s: %v", doc.Name, err)
	}
	return append(data, '\n'), nil
}

// writeFile atomically replaces path with data.
func writeFile(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return status.Errorf(codes.Unavailable, "failed to create %s: %v", path, err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)
	if _, err := f.Write(data); err != nil {
		f.Close()
		return status.Errorf(codes.Unavailable, "failed to write %s: %v", path, err)
	}
	if err := unix.Fdatasync(int(f.Fd())); err != nil {
		f.Close()
		return status.Errorf(codes.Unavailable, "failed to sync %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		return status.Errorf(codes.Unavailable, "failed to close %s: %v", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return status.Errorf(codes.Unavailable, "failed to rename %s: %v", path, err)
	}
	return nil
}

// Write stages vg with the next sequence number.
func (s *FileStore) Write(vg *raid.VolumeGroup) error {
	doc := vg.Document()
	doc.Seqno++
	data, err := encode(doc)
	if err != nil {
		return err
	}
	klog.V(4).Infof("Staging volume group %s seqno %d", vg.Name, doc.Seqno)
	return writeFile(s.path+pendingSuffix, data)
}

// Commit makes the staged metadata the committed one.
func (s *FileStore) Commit(vg *raid.VolumeGroup) error {
	pending := s.path + pendingSuffix
	if _, err := os.Stat(pending); os.IsNotExist(err) {
		return status.Errorf(codes.FailedPrecondition, "no staged metadata for volume group %s", vg.Name)
	}
	if err := os.Rename(pending, s.path); err != nil {
		return status.Errorf(codes.Unavailable, "failed to commit volume group %s: %v", vg.Name, err)
	}
	vg.Seqno++
	klog.V(2).Infof("Committed volume group %s seqno %d", vg.Name, vg.Seqno)
	return nil
}

// Revert drops the staged metadata, if any.
func (s *FileStore) Revert(vg *raid.VolumeGroup) error {
	err := os.Remove(s.path + pendingSuffix)
	if err != nil && !os.IsNotExist(err) {
		return status.Errorf(codes.Unavailable, "failed to revert volume group %s: %v", vg.Name, err)
	}
	klog.V(2).Infof("Reverted volume group %s to seqno %d", vg.Name, vg.Seqno)
	return nil
}

// Archive copies the committed metadata to the archive directory. Without
// committed metadata the in-memory state is archived instead.
func (s *FileStore) Archive(vg *raid.VolumeGroup) error {
	if s.archiveDir == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		data, err = encode(vg.Document())
	}
	if err != nil {
		return status.Errorf(codes.Unavailable, "failed to read %s: %v", s.path, err)
	}
	if err := os.MkdirAll(s.archiveDir, 0o700); err != nil {
		return status.Errorf(codes.Unavailable, "failed to create %s: %v", s.archiveDir, err)
	}
	name := filepath.Join(s.archiveDir, fmt.Sprintf("%s_%05d-%s.json", vg.Name, vg.Seqno, uuid.New()))
	klog.V(2).Infof("Archiving volume group %s metadata to %s", vg.Name, name)
	return writeFile(name, data)
}

// Backup writes the current metadata to the backup directory.
func (s *FileStore) Backup(vg *raid.VolumeGroup) error {
	if s.backupDir == "" {
		return nil
	}
	data, err := encode(vg.Document())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.backupDir, 0o700); err != nil {
		return status.Errorf(codes.Unavailable, "failed to create %s: %v", s.backupDir, err)
	}
	return writeFile(filepath.Join(s.backupDir, vg.Name+".json"), data)
}

// Save writes and commits vg in one step.
func (s *FileStore) Save(vg *raid.VolumeGroup) error {
	if err := s.Write(vg); err != nil {
		return err
	}
	return s.Commit(vg)
}
