package scheduler

// Call tags the client command a task was built from.
type Call int

const (
	CallUnknown Call = iota
	CallSetItem
	CallSetNextItem
	CallSetNextItems
	CallPrepare
	CallPlay
	CallPause
	CallSeekTo
	CallSkipToNext
	CallReset
	CallSelectTrack
	CallDeselectTrack
	CallLoopCurrent
	CallSetPlaybackRate
	CallSetVolume
	CallSetSurface
	CallSetAudioAttributes
	CallSetAudioSessionID
	CallSetSyncParams
	CallAttachAuxEffect
	CallSetAuxEffectSendLevel
	CallNotifyWhenLabelReached
	CallPrepareDRM
	CallReleaseDRM
	CallProvideDRMKeyResponse
	CallRestoreDRMKeys
	CallSetDRMProperty
)

// String returns the call name.
func (c Call) String() string {
	switch c {
	case CallSetItem:
		return "SetItem"
	case CallSetNextItem:
		return "SetNextItem"
	case CallSetNextItems:
		return "SetNextItems"
	case CallPrepare:
		return "Prepare"
	case CallPlay:
		return "Play"
	case CallPause:
		return "Pause"
	case CallSeekTo:
		return "SeekTo"
	case CallSkipToNext:
		return "SkipToNext"
	case CallReset:
		return "Reset"
	case CallSelectTrack:
		return "SelectTrack"
	case CallDeselectTrack:
		return "DeselectTrack"
	case CallLoopCurrent:
		return "LoopCurrent"
	case CallSetPlaybackRate:
		return "SetPlaybackRate"
	case CallSetVolume:
		return "SetVolume"
	case CallSetSurface:
		return "SetSurface"
	case CallSetAudioAttributes:
		return "SetAudioAttributes"
	case CallSetAudioSessionID:
		return "SetAudioSessionID"
	case CallSetSyncParams:
		return "SetSyncParams"
	case CallAttachAuxEffect:
		return "AttachAuxEffect"
	case CallSetAuxEffectSendLevel:
		return "SetAuxEffectSendLevel"
	case CallNotifyWhenLabelReached:
		return "NotifyWhenLabelReached"
	case CallPrepareDRM:
		return "PrepareDRM"
	case CallReleaseDRM:
		return "ReleaseDRM"
	case CallProvideDRMKeyResponse:
		return "ProvideDRMKeyResponse"
	case CallRestoreDRMKeys:
		return "RestoreDRMKeys"
	case CallSetDRMProperty:
		return "SetDRMProperty"
	default:
		return "Unknown"
	}
}

// recoveryCall reports whether the command may run while the queue is in
// the error state. Installing a new item and resetting are the only ways
// out of that state, so they must not be rejected by the guard.
func (c Call) recoveryCall() bool {
	switch c {
	case CallSetItem, CallReset:
		return true
	default:
		return false
	}
}
