// Package catalog is the source-of-truth record of locally stored media
// files. The migration engine only reads from it: the single query it needs
// is the set of backed-up files whose coordinates were never recorded.
// Mutations (adding files, recording locations, marking backups) belong to
// the host import and upload paths.
package catalog
