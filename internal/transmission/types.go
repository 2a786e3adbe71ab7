// internal/transmission/types.go
package transmission

// Torrent is the subset of torrent metadata the bot renders.
type Torrent struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	HashString  string  `json:"hashString"`
	PercentDone float64 `json:"percentDone"` // 0.0 .. 1.0
}

// AddResult reports the outcome of a torrent-add call.
type AddResult struct {
	Torrent   Torrent
	Duplicate bool // the daemon already had this torrent; nothing was added
}

type torrentAddArgs struct {
	Filename    string `json:"filename"`
	DownloadDir string `json:"download-dir,omitempty"`
}

type addResponse struct {
	Added     *Torrent `json:"torrent-added"`
	Duplicate *Torrent `json:"torrent-duplicate"`
}

type torrentGetArgs struct {
	IDs    []string `json:"ids"`
	Fields []string `json:"fields"`
}

type torrentGetResponse struct {
	Torrents []Torrent `json:"torrents"`
}

type torrentRemoveArgs struct {
	IDs             []string `json:"ids"`
	DeleteLocalData bool     `json:"delete-local-data"`
}
