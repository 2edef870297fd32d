package sqltok

// NodeKind identifies the structural role of a tree node.
type NodeKind int

const (
	NodeRoot       NodeKind = iota
	NodeStatement           // tokens up to and including a top-level ';'
	NodeParens              // ( ... )
	NodeFunction            // identifier immediately followed by a parenthesis group
	NodeIdentifier          // bare identifier
	NodeToken               // any other token
)

// Node is an element of the token tree. Text is the exact source span.
type Node struct {
	Kind     NodeKind
	Text     string
	Pos      int
	End      int
	Token    Token // set for NodeIdentifier and NodeToken
	Children []*Node
}

// Name returns the function name for NodeFunction nodes, the identifier text
// for NodeIdentifier nodes and "" otherwise.
func (n *Node) Name() string {
	switch n.Kind {
	case NodeFunction:
		return n.Children[0].Text
	case NodeIdentifier:
		return n.Text
	}
	return ""
}

// Args returns the significant nodes inside a function call's parentheses,
// skipping whitespace and comments.
func (n *Node) Args() []*Node {
	if n.Kind != NodeFunction {
		return nil
	}
	var out []*Node
	for _, c := range n.Children[1].Children {
		if c.Kind == NodeToken {
			switch c.Token.Type {
			case TokenWhitespace, TokenComment, TokenLParen, TokenRParen:
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// Parse lexes input and groups the tokens into a tree rooted at a NodeRoot
// whose children are statements.
func Parse(input string) (*Node, error) {
	tokens, err := Lex(input)
	if err != nil {
		return nil, err
	}

	b := &treeBuilder{input: input, tokens: tokens}
	root := &Node{Kind: NodeRoot, Text: input, End: len(input)}

	var stmt *Node
	for b.i < len(b.tokens) {
		tok := b.tokens[b.i]
		if tok.Type == TokenRParen {
			return nil, &SyntaxError{Pos: tok.Pos, Msg: "unbalanced closing parenthesis"}
		}

		if stmt == nil {
			stmt = &Node{Kind: NodeStatement, Pos: tok.Pos}
		}
		child, err := b.element()
		if err != nil {
			return nil, err
		}
		stmt.Children = append(stmt.Children, child)

		if tok.Type == TokenSemicolon {
			root.Children = append(root.Children, b.finish(stmt))
			stmt = nil
		}
	}
	if stmt != nil {
		root.Children = append(root.Children, b.finish(stmt))
	}
	return root, nil
}

// Walk visits n and its descendants depth-first in source order. When fn
// returns false the node's children are skipped.
func Walk(n *Node, fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

type treeBuilder struct {
	input  string
	tokens []Token
	i      int
}

func (b *treeBuilder) finish(n *Node) *Node {
	last := n.Children[len(n.Children)-1]
	n.End = last.End
	n.Text = b.input[n.Pos:n.End]
	return n
}

func (b *treeBuilder) leaf(kind NodeKind, tok Token) *Node {
	return &Node{Kind: kind, Text: tok.Value, Pos: tok.Pos, End: tok.End(), Token: tok}
}

func (b *treeBuilder) element() (*Node, error) {
	tok := b.tokens[b.i]
	switch tok.Type {
	case TokenLParen:
		return b.parens()
	case TokenIdent:
		b.i++
		ident := b.leaf(NodeIdentifier, tok)
		if b.i < len(b.tokens) && b.tokens[b.i].Type == TokenLParen {
			args, err := b.parens()
			if err != nil {
				return nil, err
			}
			fn := &Node{Kind: NodeFunction, Pos: ident.Pos, Children: []*Node{ident, args}}
			return b.finish(fn), nil
		}
		return ident, nil
	default:
		b.i++
		return b.leaf(NodeToken, tok), nil
	}
}

func (b *treeBuilder) parens() (*Node, error) {
	open := b.tokens[b.i]
	b.i++
	group := &Node{Kind: NodeParens, Pos: open.Pos, Children: []*Node{b.leaf(NodeToken, open)}}

	for b.i < len(b.tokens) {
		tok := b.tokens[b.i]
		if tok.Type == TokenRParen {
			b.i++
			group.Children = append(group.Children, b.leaf(NodeToken, tok))
			return b.finish(group), nil
		}
		child, err := b.element()
		if err != nil {
			return nil, err
		}
		group.Children = append(group.Children, child)
	}
	return nil, &SyntaxError{Pos: open.Pos, Msg: "unbalanced opening parenthesis"}
}
