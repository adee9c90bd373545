package classifier

const defaultThemePrompt = `You are a feedback classifier. Analyze the feedback and return a JSON array of themes.
Possible themes: {THEMES}.
Return only the JSON array, for example ["performance", "bug"].`

const defaultUrgencyPrompt = `Rate urgency 1-10 based on impact severity, business impact, customer tier/ARR.
Blocking production impact is 10, degraded service is 7, minor inconvenience is 3. Enterprise customers raise priority.
Return only a number.`

const defaultProductPrompt = `Which product is this feedback about? Choose one of: {PRODUCTS}.
Answer "unknown" if none applies. Return only the product name.`
