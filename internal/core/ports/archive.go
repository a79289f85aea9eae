package ports

import "time"

// ArchiveReader looks inside ar-style archives.
//
//go:generate mockgen -source=archive.go -destination=mocks/mock_archive.go -package=mocks
type ArchiveReader interface {
	// MemberMtime returns the time recorded for member in archive.
	MemberMtime(archive, member string) (time.Time, bool, error)
	// TOCMtime returns the time recorded for the archive's symbol table.
	TOCMtime(archive string) (time.Time, bool, error)
}
