package command

// Result texts of command responses.
const (
	MsgUnknownCommand = "no such command"
	MsgNeedInteger    = "command needs an integer argument"
	MsgNeedString     = "command needs an argument"
	MsgNeedBand       = "command needs a band"
	MsgEmpty          = "collection is empty"
	MsgDatabase       = "database error, try again later"

	MsgAdded       = "band added to the collection"
	MsgNotAdded    = "band was not added"
	MsgInvalidBand = "band is invalid"

	MsgNoSuchID    = "no band with this id"
	MsgNoSuchIndex = "no element at this index"
	MsgRemoved     = "band removed"
	MsgNotRemoved  = "band was not removed: it does not belong to you"

	MsgUpdated    = "band updated"
	MsgNotUpdated = "band was not updated: it does not belong to you"

	MsgCleared        = "your bands were removed"
	MsgNothingToClear = "nothing to clear: none of the bands belong to you"
	MsgNotCleared     = "collection was not cleared"

	MsgShuffled = "collection shuffled"

	MsgLoggedIn   = "signed in"
	MsgAuthFailed = "authentication failed"
	MsgRegistered = "registered"
	MsgLoginTaken = "login already taken, choose another one"
	MsgBadLogin   = "login and password must not be empty"

	MsgScriptNotFound = "script file not found"
	MsgScriptRead     = "error reading script file"
	MsgScriptOutside  = "script file is outside the script directory"
	MsgBadNumber      = "malformed number in command argument"
	MsgRecursion      = "recursion detected"
)
