package protocol

import "golang.org/x/exp/slices"

// Command names.
const (
	CmdAdd                      = "add"
	CmdClear                    = "clear"
	CmdExecuteScript            = "execute_script"
	CmdGroupCountingByLabel     = "group_counting_by_label"
	CmdHelp                     = "help"
	CmdInfo                     = "info"
	CmdLogin                    = "login"
	CmdPrintDescending          = "print_descending"
	CmdPrintFieldAscendingLabel = "print_field_ascending_label"
	CmdRegister                 = "register"
	CmdRemoveAt                 = "remove_at"
	CmdRemoveByID               = "remove_by_id"
	CmdRemoveFirst              = "remove_first"
	CmdShow                     = "show"
	CmdShuffle                  = "shuffle"
	CmdUpdate                   = "update"
)

// Spec describes the shape of a command's request: which kind of positional
// argument it takes and whether it carries a record.
type Spec struct {
	Name        string
	Description string
	Arg         ArgKind
	Record      bool
}

// Catalog lists every command known to both client and server, sorted by
// name.
var Catalog = []Spec{
	{Name: CmdAdd, Record: true, Description: "add {element} : add a new element to the collection"},
	{Name: CmdClear, Description: "clear : remove all of your elements from the collection"},
	{Name: CmdExecuteScript, Arg: ArgString, Description: "execute_script file_name : read and execute commands from the given file"},
	{Name: CmdGroupCountingByLabel, Description: "group_counting_by_label : group elements by label and print the size of each group"},
	{Name: CmdHelp, Description: "help : list the available commands"},
	{Name: CmdInfo, Description: "info : print information about the collection (type, creation date, size)"},
	{Name: CmdLogin, Description: "login : sign in with your credentials"},
	{Name: CmdPrintDescending, Description: "print_descending : print the elements of the collection in descending order"},
	{Name: CmdPrintFieldAscendingLabel, Description: "print_field_ascending_label : print the label of every element in ascending order"},
	{Name: CmdRegister, Description: "register : create a new user"},
	{Name: CmdRemoveAt, Arg: ArgInt, Description: "remove_at index : remove the element at the given position of the collection"},
	{Name: CmdRemoveByID, Arg: ArgInt, Description: "remove_by_id id : remove the element with the given id"},
	{Name: CmdRemoveFirst, Description: "remove_first : remove the first element of the collection"},
	{Name: CmdShow, Description: "show : print every element of the collection"},
	{Name: CmdShuffle, Description: "shuffle : shuffle the elements of the collection"},
	{Name: CmdUpdate, Arg: ArgInt, Record: true, Description: "update id {element} : replace the element with the given id"},
}

// Lookup returns the Spec of the named command.
func Lookup(name string) (Spec, bool) {
	i, found := slices.BinarySearchFunc(Catalog, name, func(s Spec, name string) int {
		switch {
		case s.Name < name:
			return -1
		case s.Name > name:
			return 1
		}
		return 0
	})
	if !found {
		return Spec{}, false
	}
	return Catalog[i], true
}
