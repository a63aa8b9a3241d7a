package reader

import (
	"path/filepath"
	"strings"
)

// FileType tags the format of a file referenced by a submission.
type FileType int

const (
	Unknown FileType = iota
	MGF
	MZML
	MZXML
	PKL
	MS2
	PRIDE
	MZIDENTML
	MZTAB
)

var fileTypeNames = map[FileType]string{
	Unknown:   "unknown",
	MGF:       "mgf",
	MZML:      "mzml",
	MZXML:     "mzxml",
	PKL:       "pkl",
	MS2:       "ms2",
	PRIDE:     "pride",
	MZIDENTML: "mzid",
	MZTAB:     "mztab",
}

func (t FileType) String() string {
	if name, ok := fileTypeNames[t]; ok {
		return name
	}
	return fileTypeNames[Unknown]
}

// IsPeakList reports whether files of this type carry spectra.
func (t FileType) IsPeakList() bool {
	switch t {
	case MGF, MZML, MZXML, PKL, MS2, PRIDE:
		return true
	}
	return false
}

// ParseFileType maps a format tag such as "mzML" or "pride" to a FileType.
func ParseFileType(tag string) FileType {
	tag = strings.ToLower(strings.TrimSpace(tag))
	switch tag {
	case "mzidentml":
		return MZIDENTML
	case "pridexml", "pride_xml":
		return PRIDE
	}
	for t, name := range fileTypeNames {
		if name == tag {
			return t
		}
	}
	return Unknown
}

// DetectFileType guesses the type from the file extension. A trailing .gz is
// not stripped: compressed files are not readable.
func DetectFileType(path string) FileType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mgf":
		return MGF
	case ".mzml":
		return MZML
	case ".mzxml":
		return MZXML
	case ".pkl":
		return PKL
	case ".ms2":
		return MS2
	case ".xml":
		return PRIDE
	case ".mzid":
		return MZIDENTML
	case ".mztab":
		return MZTAB
	}
	return Unknown
}

// FileTypeFromCV maps the accession of an mzIdentML FileFormat cvParam.
func FileTypeFromCV(accession string) FileType {
	switch accession {
	case "MS:1001062":
		return MGF
	case "MS:1000584":
		return MZML
	case "MS:1000566":
		return MZXML
	case "MS:1000565":
		return PKL
	case "MS:1001466":
		return MS2
	case "MS:1002600":
		return PRIDE
	}
	return Unknown
}
