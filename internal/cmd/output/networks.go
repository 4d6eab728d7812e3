package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nebulaops/vnetctl/pkg/reconcile"
	"github.com/nebulaops/vnetctl/pkg/vnet"
)

var titleCaser = cases.Title(language.English)

// NetworksToTableData converts network records to a listing table.
// Wide output adds driver and bridge columns pulled from the template.
func NetworksToTableData(networks []vnet.Network, wide bool) Data {
	headers := []string{"ID", "Name", "Owner", "Group", "Clusters"}
	alignment := []Align{AlignRight, AlignLeft, AlignLeft, AlignLeft, AlignLeft}
	if wide {
		headers = append(headers, "Driver", "Bridge")
		alignment = append(alignment, AlignLeft, AlignLeft)
	}

	rows := make([][]string, 0, len(networks))
	for _, n := range networks {
		row := []string{
			strconv.Itoa(n.ID),
			n.Name,
			n.OwnerName,
			n.GroupName,
			joinInts(n.ClusterIDs),
		}
		if wide {
			row = append(row, n.Template.GetString("VN_MAD"), n.Template.GetString("BRIDGE"))
		}
		rows = append(rows, row)
	}

	return Data{Headers: headers, Rows: rows, ColumnAlignment: alignment}
}

// NetworkToTableData converts a single network to a property table.
func NetworkToTableData(n *vnet.Network) Data {
	rows := [][]string{
		{"ID", strconv.Itoa(n.ID)},
		{"Name", n.Name},
		{"Owner", fmt.Sprintf("%s (%d)", n.OwnerName, n.OwnerID)},
		{"Group", fmt.Sprintf("%s (%d)", n.GroupName, n.GroupID)},
		{"Clusters", joinInts(n.ClusterIDs)},
	}
	for _, pair := range n.Template.Pairs {
		if pair.Value.IsVector() {
			continue
		}
		rows = append(rows, []string{titleCaser.String(strings.ToLower(pair.Key)), pair.Value.Str})
	}

	return Data{
		Headers: []string{"Property", "Value"},
		Rows:    rows,
	}
}

// ChangesetToTableData converts field changes to a diff table.
func ChangesetToTableData(cs *reconcile.Changeset) Data {
	data := Data{
		Headers:         []string{"Field", "Change", "Old", "New"},
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignLeft},
	}
	if cs == nil {
		return data
	}
	for _, change := range cs.Changes {
		data.Rows = append(data.Rows, []string{
			change.Path,
			string(change.Type),
			change.OldValue,
			change.NewValue,
		})
	}
	return data
}

// FormatNetworks writes a network listing in the requested format.
func FormatNetworks(w io.Writer, format Format, networks []vnet.Network) error {
	formatter := NewFormatter(format)
	switch format {
	case FormatTable, FormatWide, "":
		return formatter.Format(w, NetworksToTableData(networks, format == FormatWide))
	default:
		return formatter.Format(w, networks)
	}
}

// FormatResult writes a reconciliation result in the requested format.
// Tables get a summary line, the network properties, and the field diff;
// JSON and YAML serialize the whole record.
func FormatResult(w io.Writer, format Format, result *reconcile.Result) error {
	switch format {
	case FormatTable, FormatWide, "":
		if _, err := fmt.Fprintln(w, result.String()); err != nil {
			return err
		}
		formatter := NewFormatter(format)
		if result.Network != nil {
			if err := formatter.Format(w, NetworkToTableData(result.Network)); err != nil {
				return err
			}
		}
		if result.HasChanges() {
			return formatter.Format(w, ChangesetToTableData(result.Changeset))
		}
		return nil
	default:
		return NewFormatter(format).Format(w, result)
	}
}

func joinInts(values []int) string {
	if len(values) == 0 {
		return "-"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
