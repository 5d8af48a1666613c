// Package storage persists generated SRT files.
//
// Two backends satisfy the same Backend interface. GitHub commits each file
// through the repository contents API, updating in place when the path already
// exists. Local writes beneath a directory with temp-file-and-rename so a
// reader never sees a partial subtitle file. Both lay files out as
// {tenant}/{fileName} under their root and reject names that would escape it.
package storage
