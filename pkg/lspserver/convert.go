package lspserver

import (
	"github.com/atomicobject/moxide/pkg/model"
	"github.com/atomicobject/moxide/pkg/vaultindex"
	"go.lsp.dev/protocol"
)

// posFromProtocol converts an LSP position (UTF-16 code units) on path
// into a model.Pos (runes), using the vault's current text for that
// line to do the unit conversion.
func posFromProtocol(v *vaultindex.Vault, path string, p protocol.Position) model.Pos {
	text := ""
	if pf, ok := v.File(path); ok {
		text = pf.Text
	}
	line := lineAt(text, int(p.Line))
	return model.Pos{Line: int(p.Line), Col: utf16ToRune(line, p.Character)}
}

func posToProtocol(v *vaultindex.Vault, path string, p model.Pos) protocol.Position {
	text := ""
	if pf, ok := v.File(path); ok {
		text = pf.Text
	}
	line := lineAt(text, p.Line)
	return protocol.Position{Line: uint32(p.Line), Character: runeToUTF16(line, p.Col)}
}

func rangeToProtocol(v *vaultindex.Vault, path string, r model.Range) protocol.Range {
	return protocol.Range{
		Start: posToProtocol(v, path, r.Start),
		End:   posToProtocol(v, path, r.End),
	}
}

func locationToProtocol(root string, v *vaultindex.Vault, loc model.Location) protocol.Location {
	return protocol.Location{
		URI:   toURI(root, loc.Path),
		Range: rangeToProtocol(v, loc.Path, loc.Range),
	}
}

func textEditToProtocol(v *vaultindex.Vault, path string, e model.TextEdit) protocol.TextEdit {
	return protocol.TextEdit{Range: rangeToProtocol(v, path, e.Range), NewText: e.NewText}
}

// workspaceEditToProtocol renders a model.WorkspaceEdit as an LSP
// WorkspaceEdit. FileOps are not representable as plain protocol.TextEdit
// changes, so rename/create are applied directly to disk by the caller
// and only the text-edit portion is returned to the client here; see
// Server.applyFileOps.
func workspaceEditToProtocol(root string, v *vaultindex.Vault, we model.WorkspaceEdit) protocol.WorkspaceEdit {
	changes := make(map[protocol.DocumentURI][]protocol.TextEdit, len(we.Edits))
	for path, edits := range we.Edits {
		out := make([]protocol.TextEdit, 0, len(edits))
		for _, e := range edits {
			out = append(out, textEditToProtocol(v, path, e))
		}
		changes[toURI(root, path)] = out
	}
	return protocol.WorkspaceEdit{Changes: changes}
}

func symbolToProtocolInformation(root string, v *vaultindex.Vault, sym model.Symbol) protocol.SymbolInformation {
	return protocol.SymbolInformation{
		Name:     sym.Name,
		Kind:     symbolKindToProtocol(sym.Kind),
		Location: locationToProtocol(root, v, sym.Location),
	}
}

func symbolToDocumentSymbol(v *vaultindex.Vault, path string, sym model.Symbol) protocol.DocumentSymbol {
	children := make([]protocol.DocumentSymbol, 0, len(sym.Children))
	for _, c := range sym.Children {
		children = append(children, symbolToDocumentSymbol(v, path, c))
	}
	r := rangeToProtocol(v, path, sym.Location.Range)
	return protocol.DocumentSymbol{
		Name:           sym.Name,
		Kind:           symbolKindToProtocol(sym.Kind),
		Range:          r,
		SelectionRange: r,
		Children:       children,
	}
}

func symbolKindToProtocol(k model.SymbolKind) protocol.SymbolKind {
	switch k {
	case model.SymbolHeading:
		return protocol.SymbolKindString
	case model.SymbolTag:
		return protocol.SymbolKindKey
	default:
		return protocol.SymbolKindFile
	}
}

func diagnosticToProtocol(v *vaultindex.Vault, path string, d model.Diagnostic) protocol.Diagnostic {
	sev := protocol.DiagnosticSeverityWarning
	return protocol.Diagnostic{
		Range:    rangeToProtocol(v, path, d.Range),
		Severity: sev,
		Source:   "moxide",
		Message:  d.Message,
	}
}
