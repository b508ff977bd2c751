package analysis

import "fmt"

// upsellAnalysisSchema is the strict JSON Schema the LLM's structured
// output is constrained to. Field order mirrors the original
// cashier-upsell evaluation rubric.
var upsellAnalysisSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"attempted": map[string]any{
			"type":        "string",
			"enum":        []string{"yes", "no", "uncertain"},
			"description": "Was an upsell attempt made by the cashier?",
		},
		"quality_score": map[string]any{
			"type":        "integer",
			"minimum":     0,
			"maximum":     3,
			"description": "Quality of upsell attempt: 0=none/bad, 1=minimal, 2=good, 3=excellent",
		},
		"categories": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "string",
				"enum": []string{
					"coffee_size", "dessert", "pastry", "add_ons",
					"syrup", "combo", "takeaway", "other",
				},
			},
			"description": "Categories of products offered in upsell",
		},
		"closing_question": map[string]any{
			"type":        "boolean",
			"description": "Did cashier ask a closing question (e.g., 'Anything else?')?",
		},
		"customer_reaction": map[string]any{
			"type":        "string",
			"enum":        []string{"accepted", "rejected", "unclear"},
			"description": "How did the customer respond to the upsell?",
		},
		"evidence_quotes": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string", "maxLength": 100},
			"minItems":    0,
			"maxItems":    3,
			"description": "1-3 short quotes (<=12 words each) from transcript as evidence",
		},
		"summary": map[string]any{
			"type":        "string",
			"maxLength":   200,
			"description": "Brief 1-2 sentence explanation of the analysis",
		},
		"confidence": map[string]any{
			"type":        "number",
			"minimum":     0,
			"maximum":     1,
			"description": "Confidence in analysis (0-1)",
		},
	},
	"required": []string{
		"attempted", "quality_score", "categories", "closing_question",
		"customer_reaction", "evidence_quotes", "summary", "confidence",
	},
	"additionalProperties": false,
}

const systemPrompt = `Ты — эксперт по анализу качества обслуживания в сфере фастфуда/кофеен.
Твоя задача — определить, предлагал ли кассир дополнительные товары (допродажу/upsell) и оценить качество предложения.

ПРАВИЛА ОЦЕНКИ:

1. attempted (попытка допродажи):
   - "yes" — кассир явно предложил что-то дополнительное
   - "no" — кассир НЕ предлагал ничего дополнительного
   - "uncertain" — неясно из текста, используй при сомнениях

2. quality_score (0-3):
   - 0: Нет предложения или откровенно плохое
   - 1: Минимальное усилие (просто "что-то еще?")
   - 2: Хорошее предложение (конкретный товар)
   - 3: Отличное (персонализированное, с обоснованием)

3. categories — выбери применимые:
   - coffee_size: увеличение размера напитка
   - dessert: десерты
   - pastry: выпечка
   - add_ons: добавки общие
   - syrup: сиропы
   - combo: комбо-наборы
   - takeaway: предложение с собой
   - other: прочее

4. closing_question: был ли "закрывающий вопрос" типа "Это всё?", "Что-нибудь ещё?"

5. customer_reaction:
   - "accepted" — клиент согласился
   - "rejected" — клиент отказался
   - "unclear" — реакция неясна

6. evidence_quotes: 1-3 ТОЧНЫЕ цитаты из текста (не более 12 слов каждая)
   ВАЖНО: цитируй только то, что РЕАЛЬНО есть в тексте!

7. summary: 1-2 предложения объяснения

8. confidence: уверенность в анализе (0.0-1.0)

ВАЖНО:
- Не придумывай то, чего нет в тексте
- Если сомневаешься — ставь attempted="uncertain"
- Цитаты должны быть ТОЧНЫМИ из входного текста`

// buildUserPrompt embeds the transcript and call context into the
// user-turn message sent alongside systemPrompt.
func buildUserPrompt(transcriptText string, durationSec float64, pointID, registerID string) string {
	return fmt.Sprintf(`Проанализируй следующий диалог кассира с клиентом:

=== ТРАНСКРИПТ ===
%s
=== КОНЕЦ ТРАНСКРИПТА ===

Контекст:
- Длительность диалога: %.1f секунд
- Точка: %s
- Касса: %s

Определи:
1. Была ли попытка допродажи?
2. Оцени качество (0-3)
3. Какие категории товаров предлагались?
4. Был ли закрывающий вопрос?
5. Как отреагировал клиент?
6. Приведи цитаты-доказательства из текста
7. Кратко объясни свой анализ

Отвечай ТОЛЬКО валидным JSON по указанной схеме.`, transcriptText, durationSec, pointID, registerID)
}
