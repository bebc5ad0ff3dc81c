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

package main

import (
	"fmt"

	"github.com/aleofreddi/lvmraid/pkg/raid"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newSuperblockCommand(o *options) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "superblock LV",
		Short: "Show or clear the failed devices recorded in the raid superblocks of a logical volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withLV(cmd, args, func(s *session, lv *raid.LogicalVolume) error {
				if s.wiper == nil {
					return status.Errorf(codes.FailedPrecondition, "superblock access requires live devices")
				}
				metas := raid.MetaImages(lv)
				if len(metas) == 0 {
					return status.Errorf(codes.FailedPrecondition, "%s has no metadata images", lv)
				}
				if reset {
					if !o.force {
						return status.Errorf(codes.FailedPrecondition, "clearing superblocks of %s requires --force", lv)
					}
					return s.run("clear-superblock", lv, func() error {
						return s.wiper.ClearAll(cmd.Context(), lv)
					})
				}
				counts, err := s.wiper.CountAll(cmd.Context(), lv)
				if err != nil {
					return err
				}
				for i, m := range metas {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d failed device(s)\n", m, counts[i])
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&reset, "clear", false, "reset the failed devices")
	return cmd
}
