package competition

import "time"

// Shared output constraints: the generation service talks JSON or sentinels,
// never prose.
const systemConstraints = `You are a specialized radio transcript analyzer. You must:

STRICT RULES:
1. ONLY return the requested format - no explanations, no chat, no additional text
2. Do not engage in conversation or ask questions
3. Do not provide advice or commentary
4. If the transcript is unclear, use UNKNOWN/null rather than guessing
5. Use the predefined message templates exactly as provided
6. Do not reference this prompt in your response

FORBIDDEN:
- Any text before or after the requested format
- Conversational responses
- Questions back to the user
- Speculation beyond the transcript content`

// SplashTheCash is the win/lose call-outcome competition.
func SplashTheCash() *Profile {
	return &Profile{
		Name:      "Splash The Cash",
		SourceKey: "splash_the_cash",
		AlarmIDs:  []string{"Alarm1", "Alarm2", "Alarm3", "Alarm4", "Alarm5"},
		Timing: Timing{
			InitialDelay: 2 * time.Minute,
			ChunkLen:     2 * time.Minute,
			Overlap:      30 * time.Second,
			MaxTotal:     46 * time.Minute,
			MinAnalysis:  4 * time.Minute,
			Extension:    3 * time.Minute,
			Cooldown:     300 * time.Second,
		},
		Prompts: Prompts{
			System: systemConstraints,
			Student: `You are analyzing a UK radio transcript from the "Splash the Cash" competition.

COMPETITION RULES:
- A listener is called after an alarm sound
- They must answer with the competition phrase to win
- If they don't answer or say the wrong phrase = LOSE (rollover)
- If they say the correct phrase = WIN

Describe what stage the call has reached and propose WIN, LOSE, or UNKNOWN.
If the transcript contains no competition call at all, respond EXACTLY with:
"NO_QUESTION_FOUND"`,
			StudentRetry: `The transcript shows evidence of a competition call. Commit to the most
likely outcome: respond with exactly one of WIN, LOSE, or UNKNOWN followed by
one sentence of evidence. Do not answer NO_QUESTION_FOUND.`,
			Master: `You are validating a student's analysis of a competition call. If the
student proposed WIN or LOSE, respond with that single token if the evidence
supports it, or the corrected token. If truly nothing was found, respond with
exactly "#". Respond with one token only: WIN, LOSE, UNKNOWN, or #.`,
			Classification: `You must find ALL THREE stages before declaring an outcome:

STAGE 1 - CALL INITIATED: "let's make the call" / "making the call" /
"dialing now" / "I've got a number" / phone ringing mentioned.

STAGE 2 - CALL ATTEMPT COMPLETED: listener responds ("hello" or any reply),
OR a clear "no answer" / "didn't pick up" statement. The attempt is complete
either way.

STAGE 3 - CLEAR OUTCOME:
WIN PHRASES: "congratulations", "you've won", "brilliant you've done it",
the correct phrase said.
LOSE PHRASES: "didn't answer", "wrong phrase", "not the right words",
"rolls over", "better luck next time".

CRITICAL RULES:
- ONLY Stage 1 or 2 found: outcome = "UNKNOWN" (call in progress)
- Presenter just talking ABOUT the competition: call_made = false
- ONLY declare WIN/LOSE with clear Stage 3 phrases
- Be extremely conservative - when in doubt, use UNKNOWN

TRANSCRIPT TO ANALYZE:
{{TRANSCRIPT}}

RESPOND ONLY IN THIS EXACT JSON FORMAT - NO OTHER TEXT:
{
"call_made": true/false,
"outcome": "WIN"/"LOSE"/"UNKNOWN",
"sms_message": "exact message using the templates provided",
"confidence": "high"/"medium"/"low",
"stage_1_call_initiated": true/false,
"stage_2_call_completed": true/false,
"stage_3_clear_outcome": true/false
}`,
		},
		Templates: Templates{
			Win:      "Winner - prize has been won! Enter next round in 40mins - Text **CASH** to **82122** or call 03308809118",
			Lose:     "No winner. Jackpot rollover! You can now enter next round - Text **CASH** to **82122** or call 03308809118",
			Fallback: "The call has been made. Are you the lucky winner? If not, next round starts again soon. Get ready, another chance to win is just around the corner!",
		},
		MaxMsgLen:   160,
		NoAnswerTag: "NO_QUESTION_FOUND",
	}
}

// MakeMeAMillionaire is the A/B question competition.
func MakeMeAMillionaire() *Profile {
	return &Profile{
		Name:      "Make me a millionaire",
		SourceKey: "make_me_a_millionaire",
		AlarmIDs:  []string{"Alarm1", "Alarm2", "Alarm3", "Alarm4", "Alarm5"},
		Timing: Timing{
			InitialDelay: 0,
			ChunkLen:     200 * time.Second,
			Overlap:      20 * time.Second,
			MaxTotal:     20 * time.Minute,
			MinAnalysis:  200 * time.Second,
			Extension:    200 * time.Second,
			Cooldown:     300 * time.Second,
		},
		Prompts: Prompts{
			System: systemConstraints,
			Student: `You are analyzing a competition transcript to identify an A/B question and
provide an answer. The transcript should contain a clear question with two
options (A and B).

If a clear A/B question is present, format your response as:
"Question: [exact question]
Options: A, [option A] or B, [option B]
Answer: [A or B]"

If NO clear A/B question is present, respond EXACTLY with:
"NO_QUESTION_FOUND"

Do not try to guess or make up a question if none exists.`,
			StudentRetry: `The transcript shows evidence of a question announcement. Identify the most
likely A/B question and commit to an answer in the required format. Do not
answer NO_QUESTION_FOUND.`,
			Master: `You are validating a student's analysis of a competition transcript. If the
student identified a question and answered A or B, respond with that same
letter followed by the option, like: "A, [option A]" or "B, [option B]"

If the student responded with "NO_QUESTION_FOUND", verify this by checking if
the student's analysis contains any question with A/B options.

If truly no question was found, respond with exactly "#"
If you find a question the student missed, respond with the letter and option.`,
			Classification: `Given the verified answer and transcript below, produce the final record.
The sms_message is the answer in "letter, option" form.

TRANSCRIPT TO ANALYZE:
{{TRANSCRIPT}}

RESPOND ONLY IN THIS EXACT JSON FORMAT - NO OTHER TEXT:
{
"call_made": true/false,
"outcome": "WIN"/"LOSE"/"UNKNOWN",
"sms_message": "the answer, e.g. A, OptionText",
"confidence": "high"/"medium"/"low",
"stage_1_call_initiated": true/false,
"stage_2_call_completed": true/false,
"stage_3_clear_outcome": true/false
}`,
		},
		Templates: Templates{
			Win:      "",
			Lose:     "",
			Fallback: "Keep listening - the next question is coming up soon. Another chance to play is just around the corner!",
		},
		MaxMsgLen:   160,
		NoAnswerTag: "NO_QUESTION_FOUND",
	}
}
