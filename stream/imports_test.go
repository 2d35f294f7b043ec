// Copyright 2026 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package stream

import (
	"encoding/json"
	"os/exec"
	"strings"
	"testing"
)

// The tokenizer path has to stay importable with nothing beyond the
// standard library and golang.org/x/exp, so embedders of these packages
// never inherit a dependency tree.
func TestNoThirdPartyImports(t *testing.T) {
	const module = "github.com/SnellerInc/streamdec"
	core := []string{
		module + "/stream",
		module + "/utf8",
		module + "/jsontok",
		module + "/cbortok",
	}
	for _, pkgname := range core {
		desc, err := exec.Command("go", "list", "-json", pkgname).CombinedOutput()
		if err != nil {
			t.Fatalf("go list %s: %s", pkgname, desc)
		}
		var pkg struct {
			Deps []string `json:"Deps"`
		}
		if err := json.Unmarshal(desc, &pkg); err != nil {
			t.Fatal(err)
		}
		for _, dep := range pkg.Deps {
			head, _, _ := strings.Cut(dep, "/")
			if !strings.Contains(head, ".") {
				continue // standard library
			}
			if dep == module || strings.HasPrefix(dep, module+"/") {
				continue
			}
			if strings.HasPrefix(dep, "golang.org/x/exp/") {
				continue // constraints, via ints
			}
			t.Errorf("package %s depends on %s", pkgname, dep)
		}
	}
}
