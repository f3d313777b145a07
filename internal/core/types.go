package core

import "canvascore/pkg/domain"

type (
	AppState       = domain.AppState
	ComponentNode  = domain.ComponentNode
	BoundingBox    = domain.BoundingBox
	Action         = domain.Action
	ActionType     = domain.ActionType
	ChangeSet      = domain.ChangeSet
	Path           = domain.Path
	DispatchResult = domain.DispatchResult
	Snapshot       = domain.Snapshot
	SnapshotStore  = domain.SnapshotStore
)

const (
	ChangeCreate = domain.ChangeCreate
	ChangeUpdate = domain.ChangeUpdate
	ChangeDelete = domain.ChangeDelete
)
