package transform

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
)

// Per-record flag bits within CompactMetadata (spec §4.7 step 7: bit 2
// marks a thumbnail).
const (
	FlagLicensed  = 1 << 0
	FlagLabeled   = 1 << 1
	FlagThumbnail = 1 << 2
)

// FileRecord is one file's parsed compact-metadata attributes.
type FileRecord struct {
	Name        string
	Extension   string
	MIME        string
	Licensed    bool
	Labeled     bool
	Thumbnail   bool
	Flags       int
	FolderIndex int
}

// CompactMetadata is the parsed form of a contract's compact metadata
// string (spec §4.7 step 4). The wire shape is:
//
//	<version>|<encKey1>|<encKey2>|...|<folderMapCSV>#<fileRecordsCSV>
//
// folderMapCSV is a comma-separated list of folder paths; its position in
// the list is the 1-based folder index used by file records (index 0 is
// implicitly the contract owner's root, "/"). fileRecordsCSV holds one
// "<name>.<folderIndex>.<flags>" group per file, in the same order as the
// contract's df (cid → size) map's cids sorted ascending.
type CompactMetadata struct {
	Version   string
	EncKeys   []string
	FolderMap map[int]string
	Records   []FileRecord
}

// ParseCompactMetadata parses raw per the CompactMetadata shape above.
func ParseCompactMetadata(raw string) (*CompactMetadata, error) {
	headerBody := strings.SplitN(raw, "#", 2)
	header := headerBody[0]
	var body string
	if len(headerBody) == 2 {
		body = headerBody[1]
	}

	headerParts := strings.Split(header, "|")
	if headerParts[0] == "" {
		return nil, fmt.Errorf("transform: empty compact metadata header")
	}

	md := &CompactMetadata{
		Version:   headerParts[0],
		FolderMap: map[int]string{0: "/"},
	}
	if len(headerParts) >= 2 {
		md.EncKeys = headerParts[1 : len(headerParts)-1]
		folderCSV := headerParts[len(headerParts)-1]
		if folderCSV != "" {
			for i, f := range strings.Split(folderCSV, ",") {
				md.FolderMap[i+1] = f
			}
		}
	}

	if body == "" {
		return md, nil
	}
	for _, rec := range strings.Split(body, ",") {
		if rec == "" {
			continue
		}
		fr, err := parseFileRecord(rec)
		if err != nil {
			return nil, err
		}
		md.Records = append(md.Records, fr)
	}
	return md, nil
}

func parseFileRecord(rec string) (FileRecord, error) {
	parts := strings.Split(rec, ".")
	if len(parts) < 3 {
		return FileRecord{}, fmt.Errorf("transform: malformed file record %q", rec)
	}
	flags, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return FileRecord{}, fmt.Errorf("transform: bad flags in record %q: %w", rec, err)
	}
	folderIdx, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return FileRecord{}, fmt.Errorf("transform: bad folder index in record %q: %w", rec, err)
	}
	name := strings.Join(parts[:len(parts)-2], ".")
	ext := strings.TrimPrefix(path.Ext(name), ".")

	return FileRecord{
		Name:        name,
		Extension:   ext,
		MIME:        mimeForExtension(ext),
		Licensed:    flags&FlagLicensed != 0,
		Labeled:     flags&FlagLabeled != 0,
		Thumbnail:   flags&FlagThumbnail != 0,
		Flags:       flags,
		FolderIndex: folderIdx,
	}, nil
}

// FolderPath resolves idx against md's folder map, defaulting to root for
// an index the header never declared.
func (md *CompactMetadata) FolderPath(idx int) string {
	if p, ok := md.FolderMap[idx]; ok {
		return p
	}
	return "/"
}

var extensionMIME = map[string]string{
	"jpg": "image/jpeg", "jpeg": "image/jpeg", "png": "image/png", "gif": "image/gif",
	"mp4": "video/mp4", "webm": "video/webm", "mp3": "audio/mpeg",
	"pdf": "application/pdf", "txt": "text/plain", "json": "application/json",
	"html": "text/html", "md": "text/markdown", "zip": "application/zip",
}

func mimeForExtension(ext string) string {
	if m, ok := extensionMIME[strings.ToLower(ext)]; ok {
		return m
	}
	return "application/octet-stream"
}

// SortedCIDs returns df's keys sorted ascending: the deterministic order
// compact metadata's file records are assumed to follow.
func SortedCIDs(df map[string]int64) []string {
	cids := make([]string, 0, len(df))
	for cid := range df {
		cids = append(cids, cid)
	}
	sort.Strings(cids)
	return cids
}
