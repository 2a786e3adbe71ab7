package bot

// Button labels double as callback payloads for the static commands; only
// the download/status/remove buttons carry structured payloads.
const (
	cmdSettingsMenu = "Settings ⚙️"

	cmdTaskStatus = "Update task status 👀"
	cmdTaskRemove = "Delete torrent ❌"
	cmdTaskHide   = "Hide 🙈"

	cmdListDirectories  = "List Directories 📂"
	cmdAddDirectory     = "Add Directory 📂+"
	cmdResetDirectories = "Reset Directories 📂❌"

	cmdServerStats    = "Server stats 👀"
	cmdRegisterServer = "Register server 🧰+"
	cmdResetServers   = "Reset Servers 🧰❌"

	cmdBackToSettings = "Back to settings ⬅️"

	cmdCancel      = "cancel"
	cmdCancelLabel = "-- Cancel --"
)

// Structured payload prefixes. Payloads carry store-generated references,
// never magnet text, to stay inside the platform's 64-byte payload cap.
const (
	payloadDownload   = "download:" // download:<magnetRef>:<directoryOrdinal>
	payloadTaskStatus = "t_status:" // t_status:<taskRef>
	payloadTaskRemove = "t_remove:" // t_remove:<taskRef>
)
