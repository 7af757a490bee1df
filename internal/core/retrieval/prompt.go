package retrieval

import "strings"

// DefaultInstruction asks for a short grounded answer with verbatim quotes
// tagged by reference number.
const DefaultInstruction = "أجب بالعربية إجابة موجزة ومتماسكة توضّح العلاقة بين السؤال والمصادر، " +
	"مع تضمين اقتباسات حرفية قصيرة (≤20 كلمة) بين علامتي تنصيص داخل النص مع أرقام المراجع " +
	"مثل \"اقتباس\" (مرجع 1)، ثم أختم بقسم المراجع في النهاية."

// BuildPrompt joins instruction, question and context. Curly braces are
// replaced with parentheses so the prompt survives template-based servers.
func BuildPrompt(instruction, question, context string) string {
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultInstruction
	}
	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\nالسؤال: ")
	b.WriteString(question)
	b.WriteString("\n\nالمصادر:\n")
	b.WriteString(context)
	b.WriteString("\n\n")
	return strings.NewReplacer("{", "(", "}", ")").Replace(b.String())
}
