package llm

import (
	"fmt"
	"unicode/utf8"
)

// systemPrompt primes the model to return strict JSON.
const systemPrompt = "You are an expert research analyst specializing in academic paper analysis. You always respond with valid JSON."

// systemPromptStrict is used on the fallback request for models that do not
// support response_format.
const systemPromptStrict = "You are an expert research analyst specializing in academic paper analysis. IMPORTANT: You must respond ONLY with valid JSON, no additional text or explanation."

// BuildAnalysisPrompt formats the analysis prompt for a paper's extracted
// text. The text is truncated to maxChars to stay inside the model context.
func BuildAnalysisPrompt(paperText string, maxChars int) string {
	if maxChars > 0 && len(paperText) > maxChars {
		cut := maxChars
		// Back off to a rune boundary so truncation never splits a
		// multi-byte character.
		for cut > 0 && !utf8.RuneStart(paperText[cut]) {
			cut--
		}
		paperText = paperText[:cut]
	}

	return fmt.Sprintf(`You are an expert research analyst specializing in academic paper analysis. Your task is to thoroughly analyze the following research paper and provide a comprehensive breakdown.

## PAPER CONTENT:
%s

## ANALYSIS REQUIREMENTS:

Provide a detailed analysis with the following sections. Be specific, thorough, and extract exact information from the paper:

### 1. ABSTRACT
Summarize the abstract in 2-3 sentences. What is the core focus of this paper?

### 2. MOTIVATION
What problem or gap in existing research motivated this work?
- What are the key issues or limitations in current approaches?
- Why is this research necessary or timely?
- What real-world problem does it address?

### 3. CONTRIBUTION
What are the main contributions of this paper?
- Novel algorithms, methods, or frameworks proposed
- New datasets or benchmarks introduced
- Theoretical contributions or proofs
- Practical improvements over existing methods

### 4. WHAT DOES THE PAPER DO (Experiments & Results)
Describe the experimental evaluation:
- What datasets were used?
- What baselines or comparison methods were evaluated against?
- What metrics were used for evaluation?
- What are the key quantitative results?

### 5. HOW DOES THE PAPER DO IT (Methodology)
Explain the technical approach:
- What is the main idea or framework proposed?
- Describe the key technical components or architecture
- How does the method work (step-by-step)?

### 6. LIMITATIONS & CHALLENGES
Discuss the limitations acknowledged by the authors:
- What are the stated limitations of the proposed method?
- What assumptions does the method make?
- What challenges remain unsolved?

### 7. FUTURE WORK
What future work do the authors suggest?

### 8. CONCLUSION
Summarize the main conclusion and the broader impact.

## RESPONSE FORMAT:
Provide your analysis in the following JSON format:

{
    "abstract": "Brief summary of the abstract...",
    "motivation": "Detailed explanation of motivation...",
    "contribution": "List of key contributions...",
    "what_does_paper_do": "Experiments, results, and findings...",
    "how_does_paper_do": "Technical methodology and framework...",
    "limitations_challenges": "Limitations and challenges...",
    "future_work": "Suggested future work...",
    "conclusion": "Main conclusions and impact..."
}

Ensure your analysis is:
- Accurate and based only on the paper content
- Specific and detailed, not vague
- Well-structured and easy to understand
- Professional and scholarly in tone
`, paperText)
}
