package pack

import (
	"archive/zip"
	"crypto/md5"
	"fmt"
	"io"
	"strings"

	"github.com/gdrec/gdrec/errs"
	"github.com/gdrec/gdrec/format"
)

type zipBacking struct {
	rd *zip.Reader
}

func (z *zipBacking) read(name string) ([]byte, error) {
	for _, f := range z.rd.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("pack: %s: %w", name, errs.ErrCorrupt)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				return nil, fmt.Errorf("pack: %s: %w", name, errs.ErrShortRead)
			}
			return data, nil
		}
	}
	return nil, fmt.Errorf("pack: %s: %w", name, errs.ErrNotFound)
}

// readZip enumerates a ZIP or APK archive. For APKs, entries under
// assets/ are republished under res://; everything else (including
// AndroidManifest.xml) keeps its original name so the version probe
// can reach it.
func (r *Reader) readZip() error {
	info, err := r.src.Stat()
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(r.src, info.Size())
	if err != nil {
		return fmt.Errorf("pack: %v: %w", err, errs.ErrUnrecognized)
	}
	r.zip = &zipBacking{rd: zr}
	isAPK := r.Type == format.ContainerAPK

	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		logical := zf.Name
		if isAPK {
			if strings.HasPrefix(zf.Name, "assets/") {
				logical = "res://" + strings.TrimPrefix(zf.Name, "assets/")
			}
		} else {
			logical = "res://" + strings.TrimPrefix(zf.Name, "/")
		}
		f := &File{
			Path:    logical,
			Size:    zf.UncompressedSize64,
			MD5:     md5.Sum([]byte(logical)),
			zipName: zf.Name,
		}
		r.addFile(f)
	}

	r.Version = Version{String: "unknown"}
	if isAPK {
		if data, err := r.zip.read("AndroidManifest.xml"); err == nil {
			if ver := manifestVersionString(data); ver != "" {
				r.Version.String = ver
				parseEngineVersion(&r.Version, ver)
			} else {
				// Engine 2.x never wrote a version into the manifest.
				r.logger.Warn("could not retrieve version string from AndroidManifest.xml")
			}
		}
	}
	return nil
}

func parseEngineVersion(v *Version, s string) {
	var major, minor, rev uint32
	n, _ := fmt.Sscanf(s, "%d.%d.%d", &major, &minor, &rev)
	if n >= 2 {
		v.Major, v.Minor, v.Revision = major, minor, rev
	}
}
