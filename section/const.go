package section

const (
	MagicArchiveV1 = 0xEC10 // magic number of version 1 archives
	Version        = 1      // current container version

	HeaderSize      = 48         // fixed header size in bytes
	TableEntrySize  = 16         // fixed table directory entry size in bytes
	DirectoryOffset = HeaderSize // byte offset where the table directory starts
	RowOffsetSize   = 8          // size of one row offset in a table
)
