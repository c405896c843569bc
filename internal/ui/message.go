package ui

import "github.com/desertthunder/musicvault/internal/tasks"

type notesLoadedMsg struct {
	notes []Note
	err   error
}

type progressUpdateMsg tasks.ProgressUpdate

type refreshCompleteMsg struct {
	result *tasks.RefreshResult
	err    error
}

type noteRefreshedMsg struct {
	handle tasks.DocumentHandle
	err    error
}

type openedMsg struct {
	path string
	err  error
}
