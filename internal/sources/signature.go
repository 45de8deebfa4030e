package sources

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/Rhujeraphorn/web-evana/internal/store"
)

// FileStamp identifies one version of a file.
type FileStamp struct {
	Path    string
	ModTime int64
	Size    int64
}

// StoreStamp is the segment fingerprint of one province. Failed marks a
// fingerprint that could not be read, so recovery changes the signature.
type StoreStamp struct {
	Province string
	store.Fingerprint
	Failed bool
}

// Signature summarises every input of a selection. Equal signatures mean the
// cached graph is still valid.
type Signature struct {
	Files []FileStamp
	Store []StoreStamp
}

func (s Signature) Equal(o Signature) bool {
	return slices.Equal(s.Files, o.Files) && slices.Equal(s.Store, o.Store)
}

// Digest is a short stable hash of the signature.
func (s Signature) Digest() string {
	h := sha256.New()
	for _, f := range s.Files {
		fmt.Fprintf(h, "f\x00%s\x00%d\x00%d\n", f.Path, f.ModTime, f.Size)
	}
	for _, st := range s.Store {
		fmt.Fprintf(h, "s\x00%s\x00%d\x00%d\x00%s\x00%t\n", st.Province, st.Count, st.MaxID, st.AttrsDigest, st.Failed)
	}
	return hex.EncodeToString(h.Sum(nil)[:12])
}

// Signature stats every file the selection's file adapters could read, plus
// the store fingerprint of its provinces when the store would serve it.
func (l *Loader) Signature(ctx context.Context, sel Selection) Signature {
	seen := map[string]bool{}
	var sig Signature
	add := func(path string, fi fs.FileInfo) {
		if seen[path] {
			return
		}
		seen[path] = true
		sig.Files = append(sig.Files, FileStamp{Path: path, ModTime: fi.ModTime().UnixNano(), Size: fi.Size()})
	}

	for _, p := range sel.Bundles {
		path := l.Layout.BundlePath(p)
		if path == "" {
			continue
		}
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			add(path, fi)
		}
	}
	if sel.TouchesOutputRoot() && isDir(l.Layout.OutputRoot) {
		_ = filepath.WalkDir(l.Layout.OutputRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !hasJSONExt(d.Name()) {
				return nil
			}
			if fi, err := d.Info(); err == nil {
				add(path, fi)
			}
			return nil
		})
	}
	slices.SortFunc(sig.Files, func(a, b FileStamp) int { return cmp.Compare(a.Path, b.Path) })

	if l.Store != nil && sel.StoreEligible {
		for _, prov := range sel.Provinces {
			fp, err := l.Store.SegmentFingerprint(ctx, prov)
			if err != nil {
				l.Logger.Debug("store fingerprint failed", "province", prov, "error", err)
				sig.Store = append(sig.Store, StoreStamp{Province: prov, Failed: true})
				continue
			}
			sig.Store = append(sig.Store, StoreStamp{Province: prov, Fingerprint: fp})
		}
	}
	return sig
}
