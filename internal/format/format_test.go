package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatPlainTextIsStable(t *testing.T) {
	plain := "hello world, nothing to see"

	once := Format(plain)
	require.Equal(t, plain, once)
	require.Equal(t, once, Format(once))
}

func TestFormatEscapesMarkup(t *testing.T) {
	got := Format("<script>alert('x')</script> & more")

	require.Equal(t, "&lt;script&gt;alert('x')&lt;/script&gt; &amp; more", got)
	require.NotContains(t, got, "<")
	require.NotContains(t, got, ">")
}

func TestFormatEscapedTagsStayInertInsideMarkup(t *testing.T) {
	got := Format("**<b>** and `<i>`")

	require.Equal(t, "<strong>&lt;b&gt;</strong> and <code>&lt;i&gt;</code>", got)
}

func TestFormatToolExecutionHeader(t *testing.T) {
	got := Format("**Tool Execution:** `bash`")

	require.Equal(t,
		`<div class="tool-execution"><strong>🔧 Tool Execution:</strong> <code>bash</code></div>`,
		got)
}

func TestFormatBold(t *testing.T) {
	require.Equal(t, "say <strong>hi</strong> now", Format("say **hi** now"))
}

func TestFormatFencedOutputBlock(t *testing.T) {
	got := Format("```\n$ ls\nStatus: ok\n```")

	require.Equal(t, `<pre class="code-output"><code>$ ls`+"\n"+`Status: ok</code></pre>`, got)
}

func TestFormatFencedStatusOnlyIsOutput(t *testing.T) {
	got := Format("```\nStatus: Completed\n```")

	require.True(t, strings.HasPrefix(got, `<pre class="code-output">`), got)
}

func TestFormatFencedCodeBlock(t *testing.T) {
	require.Equal(t, "<pre><code>print(1)</code></pre>", Format("```print(1)```"))
}

func TestFormatNewlinesOnlyOutsidePre(t *testing.T) {
	got := Format("line1\n```\na\nb\n```\nline2")

	require.Equal(t, "line1<br><pre><code>a\nb</code></pre><br>line2", got)
}

func TestFormatMultipleFences(t *testing.T) {
	got := Format("```\nx\ny\n```\nmid\n```\n$ echo\n```")

	require.Equal(t,
		"<pre><code>x\ny</code></pre><br>mid<br>"+`<pre class="code-output"><code>$ echo</code></pre>`,
		got)
}

func TestFormatInlineCode(t *testing.T) {
	require.Equal(t, "use <code>go test</code> here", Format("use `go test` here"))
}

func TestFormatList(t *testing.T) {
	got := Format("- a\n- b\nend")

	require.Equal(t, "<ul><li>a</li><br><li>b</li><br></ul>end", got)
}

func TestFormatListAfterParagraph(t *testing.T) {
	got := Format("Files Modified:\n- main.go")

	require.Equal(t, "Files Modified:<br><ul><li>main.go</li></ul>", got)
}

func TestFormatMalformedInputStaysLiteral(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"unterminated fence", "```\nunterminated", "```<br>unterminated"},
		{"unterminated bold", "**oops", "**oops"},
		{"single backtick", "a `b", "a `b"},
		{"empty backticks", "``", "``"},
		{"tool header without code", "**Tool Execution:** `", "<strong>Tool Execution:</strong> `"},
		{"dash without space", "-item", "-item"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Format(tc.in))
		})
	}
}

func TestFormatNeverPanics(t *testing.T) {
	inputs := []string{
		"```", "````", "`````", "***", "****", "** **", "- ", "-\n-",
		"<pre", "</pre>", "```<pre```", "\n\n\n", "```\n```\n```",
		"**Tool Execution:** ``", "`a`b`c`", "&amp;&lt;",
	}
	for _, in := range inputs {
		require.NotPanics(t, func() { Format(in) }, in)
	}
}

func TestIsOutputBlock(t *testing.T) {
	require.True(t, IsOutputBlock("$ ls"))
	require.True(t, IsOutputBlock("Status: Running"))
	require.False(t, IsOutputBlock("print(1)"))
	require.False(t, IsOutputBlock("$HOME"))
}
