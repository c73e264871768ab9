package mcpserver

// WeeklyMessageContract describes how the weekly message body is split into
// sections by the page renderer.
const WeeklyMessageContract = `# AVIVA Weekly Message Format

The weekly message ("palavra da semana") has a title and a free-text body.
The body is split on blank lines; each paragraph becomes one section.

## Section markers

A paragraph is classified by the first marker it contains. The marker text is
removed from the rendered paragraph.

| Marker        | Section      |
|---------------|--------------|
| Introdução:   | intro        |
| Explicação:   | explanation  |
| Aplicação:    | application  |
| Conclusão:    | conclusion   |
| Versículo:    | verse        |

Paragraphs without a marker render as plain paragraphs. The home page shows a
summary taken from the intro section, or from the first paragraph when there
is no intro.

## Example

` + "```" + `text
Introdução: Deus nos chama para descansar nele.

Versículo: "Vinde a mim, todos os que estais cansados." Mateus 11:28

Explicação: O convite de Jesus é para todos.

Aplicação: Separe um momento do seu dia para oração.

Conclusão: Ele é o nosso descanso.
` + "```" + `
`
