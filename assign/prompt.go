package assign

import (
	"fmt"
	"strings"

	"github.com/crewkit/crewkit/types"
)

// BuildPrompt renders the allocation prompt for one task against a
// roster. Pure function: identical inputs produce byte-identical
// output, and agents are enumerated in roster order.
func BuildPrompt(task types.TaskSpec, roster *Roster) string {
	var b strings.Builder

	b.WriteString("You allocate tasks to agents on a small team.\n\n")
	b.WriteString("Available agents:\n")
	for _, a := range roster.Agents() {
		fmt.Fprintf(&b, "- %s: %s\n", a.Name, a.Goal)
	}

	b.WriteString("\nTask:\n")
	fmt.Fprintf(&b, "  Description: %s\n", task.Description)
	fmt.Fprintf(&b, "  Type: %s\n", task.Type)
	fmt.Fprintf(&b, "  Complexity: %d/%d\n", task.Complexity, types.MaxComplexity)

	b.WriteString("\nAnswer with exactly one agent name from the list above and nothing else.")
	return b.String()
}
