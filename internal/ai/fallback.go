package ai

import "fmt"

// FallbackArticle returns the canned markdown document used when no
// provider credential is configured at all
func FallbackArticle(topic string) string {
	if topic == "" {
		topic = "the topic"
	}
	return fmt.Sprintf(`# %[1]s

## Introduction

Understanding %[1]s matters more every year, for businesses and individuals alike. This guide walks through the key ideas, the benefits and the practices that tend to work.

## Why %[1]s Matters

Teams that pay attention to %[1]s usually see it in their day to day work: fewer surprises, clearer priorities and happier customers.

## Key Benefits

- **Better results**: a clear approach to %[1]s leads to measurable improvements.
- **Lower costs**: doing it right the first time saves money later.
- **An edge over competitors**: few people take %[1]s seriously, so those who do stand out.

## Best Practices

### Start with clear goals
Decide what you want from %[1]s and how you will measure it.

### Pick the right tools
Choose tools that match your needs instead of the most popular ones.

### Keep learning
%[1]s keeps changing. Set aside time to follow what is new.

### Measure and adjust
Look at your results regularly and change course when the numbers tell you to.

## Common Challenges

### Getting started
Start small with a pilot and grow from there.

### Limited resources
Focus on the few areas with the biggest impact first.

## Next Steps

1. Look at where you are today
2. Write down a simple plan
3. Set aside time and budget
4. Roll it out in phases
5. Review and improve

## Parting Thought

%[1]s is not something you finish. Take the first step today and build on it.
`, topic)
}
