/*
	Package zippack packs a source directory into a DEFLATE-compressed ZIP
	archive while computing a cross-platform-stable content hash, and
	reverses the process.

	Determinism is the whole point: siblings are visited in lexicographic
	order at every directory level, file content is line-ending normalized
	before hashing, and each file's relative path is mixed into the digest,
	so the hash depends only on the logical tree -- never on host OS,
	directory-listing order, compression settings, or the clock.
*/
package zippack
